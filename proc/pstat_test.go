package proc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lottery/proc"
)

func TestUsable(t *testing.T) {
	var st *proc.Pstat
	assert.False(t, st.Usable(4))
	assert.False(t, proc.NewPstat(3).Usable(4))
	assert.True(t, proc.NewPstat(4).Usable(4))
	bad := proc.NewPstat(4)
	bad.Ticks = nil
	assert.False(t, bad.Usable(4))
}

func TestUserTicks(t *testing.T) {
	st := proc.NewPstat(4)
	st.InUse = []bool{true, true, false, true}
	st.Uid = []proc.Tuid{1, 2, 1, 7}
	st.Ticks = []proc.Ttick{10, 5, 99, 3}
	ticks := st.UserTicks(3)
	assert.Equal(t, []proc.Ttick{0, 10, 5}, ticks)
}

func TestStateSchedulable(t *testing.T) {
	assert.True(t, proc.RUNNABLE.IsSchedulable())
	assert.True(t, proc.RUNNING.IsSchedulable())
	assert.False(t, proc.SLEEPING.IsSchedulable())
	assert.False(t, proc.ZOMBIE.IsSchedulable())
	assert.False(t, proc.UNUSED.InUse())
	assert.True(t, proc.ZOMBIE.InUse())
}
