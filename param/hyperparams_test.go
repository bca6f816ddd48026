package param_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lottery/param"
	"lottery/proc"
	"lottery/serr"
)

func TestDefault(t *testing.T) {
	config := param.Default()
	assert.Equal(t, proc.NUID, config.Sched.NUID)
	assert.Equal(t, proc.NPROC, config.Sched.NPROC)
	assert.Equal(t, proc.USER_CURRENCY, config.Currency.USER_CURRENCY)
	assert.Equal(t, 10*time.Millisecond, config.Sched.QUANTUM)
	assert.Equal(t, proc.USER_CURRENCY, config.Cap(3))
}

func TestLoadOverrides(t *testing.T) {
	pn := filepath.Join(t.TempDir(), "params.yaml")
	err := os.WriteFile(pn, []byte(`
sched:
  nproc: 16
  seed: 17
currency:
  caps:
    2: 500
`), 0644)
	assert.Nil(t, err)
	config, err := param.Load(pn)
	assert.Nil(t, err, "Load %v", err)
	assert.Equal(t, 16, config.Sched.NPROC)
	assert.Equal(t, uint64(17), config.Sched.SEED)
	assert.Equal(t, proc.NUID, config.Sched.NUID)
	assert.Equal(t, proc.Ttickets(500), config.Cap(2))
	assert.Equal(t, proc.USER_CURRENCY, config.Cap(1))
}

func TestValidate(t *testing.T) {
	_, err := param.ReadConfig(`
sched: {nuid: 4, nproc: 8, quantum: 1ms}
currency: {user_currency: 0}
`)
	assert.True(t, serr.IsErrCode(err, serr.TErrInvalTickets), "err %v", err)

	_, err = param.ReadConfig(`
sched: {nuid: 4, nproc: 8, quantum: 1ms}
currency: {user_currency: 10, caps: {9: 5}}
`)
	assert.True(t, serr.IsErrCode(err, serr.TErrInvalUid), "err %v", err)

	_, err = param.ReadConfig(`
sched: {nuid: 4, nproc: 8, quantum: 1ms}
currency: {user_currency: 10, caps: {2: 1073741825}}
`)
	assert.True(t, serr.IsErrCode(err, serr.TErrInvalTickets), "err %v", err)

	_, err = param.ReadConfig(`
sched: {nuid: 4, nproc: 0, quantum: 1ms}
currency: {user_currency: 10}
`)
	assert.True(t, serr.IsErrCode(err, serr.TErrInval), "err %v", err)
}

func TestLoadMissing(t *testing.T) {
	_, err := param.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NotNil(t, err)
}
