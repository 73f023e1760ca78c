package buffer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/underlay/delta/types"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from    AccessState
		op      access
		ambient types.TxnMode
		to      AccessState
		act     action
	}{
		{AccessNone, accessRead, types.ModeNone, AccessRead, actBeginRead},
		{AccessNone, accessWrite, types.ModeNone, AccessWrite, actBeginWrite},
		{AccessNone, accessRead, types.ModeRead, AccessRead, actAdopt},
		{AccessNone, accessRead, types.ModeWrite, AccessWrite, actAdopt},
		{AccessNone, accessWrite, types.ModeRead, AccessWrite, actAdoptPromote},
		{AccessNone, accessWrite, types.ModeWrite, AccessWrite, actAdopt},
		{AccessRead, accessRead, types.ModeNone, AccessRead, actNone},
		{AccessRead, accessWrite, types.ModeNone, AccessWrite, actPromote},
		{AccessWrite, accessRead, types.ModeNone, AccessWrite, actNone},
		{AccessWrite, accessWrite, types.ModeNone, AccessWrite, actNone},
		// ambient only matters when no transaction is held
		{AccessRead, accessRead, types.ModeWrite, AccessRead, actNone},
		{AccessWrite, accessWrite, types.ModeRead, AccessWrite, actNone},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d-%s", i, tt.from), func(t *testing.T) {
			to, act := transition(tt.from, tt.op, tt.ambient)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.act, act, "got %s", act)
		})
	}
}
