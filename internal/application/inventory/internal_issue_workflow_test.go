package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/inventory"
)

func newIssueWorkflow(repos *memRepos) *InternalIssueWorkflow {
	mutator := testMutator()
	return NewInternalIssueWorkflow(repos.scope(), mutator, NewFefoAllocator(mutator), NewThreeBooksEnforcer(NewSnapshotEngine()), nil, zap.NewNop())
}

func issueCmd(docNo string, lines ...IssueLine) InternalIssueCommand {
	return InternalIssueCommand{
		Scope:         inventory.ScopeProd,
		WarehouseID:   1,
		DocNo:         docNo,
		RecipientName: "QA lab",
		Lines:         lines,
		OccurredAt:    time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestInternalIssueWorkflow(t *testing.T) {
	ctx := context.Background()

	t.Run("Line naming a batch books directly on its line number", func(t *testing.T) {
		repos := newMemRepos()
		seedThreeBatches(repos)
		wf := newIssueWorkflow(repos)

		result, err := wf.Confirm(ctx, issueCmd("ISS-1",
			IssueLine{LineNo: 3, ItemID: 1, Qty: 5, BatchCode: inventory.BatchCodePtr("B")},
		))
		require.NoError(t, err)
		assert.True(t, result.OK())

		entries, err := repos.FindByRef(ctx, inventory.ScopeProd, "ISS-1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(-5), entries[0].Delta)
		assert.Equal(t, int64(3), entries[0].RefLine)
		assert.Equal(t, inventory.RawReasonInternalOut, entries[0].Reason)
	})

	t.Run("Line without a batch fans out in expiry order", func(t *testing.T) {
		repos := newMemRepos()
		seedThreeBatches(repos)
		wf := newIssueWorkflow(repos)

		result, err := wf.Confirm(ctx, issueCmd("ISS-2",
			IssueLine{LineNo: 2, ItemID: 1, Qty: 25},
		))
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
		legs := result.Lines[0].Legs
		require.Len(t, legs, 2)
		assert.Equal(t, "A", *legs[0].BatchCode)
		assert.Equal(t, "B", *legs[1].BatchCode)
		// legs of line 2 land on ref lines 201, 202
		assert.Equal(t, int64(201), legs[0].RefLine)
		assert.Equal(t, int64(202), legs[1].RefLine)
	})

	t.Run("Two allocator lines never collide on ref lines", func(t *testing.T) {
		repos := newMemRepos()
		seedThreeBatches(repos)
		wf := newIssueWorkflow(repos)

		result, err := wf.Confirm(ctx, issueCmd("ISS-3",
			IssueLine{LineNo: 1, ItemID: 1, Qty: 5},
			IssueLine{LineNo: 2, ItemID: 1, Qty: 10},
		))
		require.NoError(t, err)
		assert.True(t, result.OK())

		entries, err := repos.FindByRef(ctx, inventory.ScopeProd, "ISS-3")
		require.NoError(t, err)
		seen := make(map[int64]bool)
		for _, e := range entries {
			assert.False(t, seen[e.RefLine], "ref line %d used twice", e.RefLine)
			seen[e.RefLine] = true
		}
	})

	t.Run("Missing recipient rejects the document", func(t *testing.T) {
		repos := newMemRepos()
		seedThreeBatches(repos)
		wf := newIssueWorkflow(repos)

		cmd := issueCmd("ISS-4", IssueLine{LineNo: 1, ItemID: 1, Qty: 5})
		cmd.RecipientName = "  "
		_, err := wf.Confirm(ctx, cmd)
		require.Error(t, err)
	})

	t.Run("Shortage is a per-line status, not a document failure", func(t *testing.T) {
		repos := newMemRepos()
		seedThreeBatches(repos)
		wf := newIssueWorkflow(repos)

		result, err := wf.Confirm(ctx, issueCmd("ISS-5",
			IssueLine{LineNo: 1, ItemID: 1, Qty: 1000},
			IssueLine{LineNo: 2, ItemID: 1, Qty: 5, BatchCode: inventory.BatchCodePtr("C")},
		))
		require.NoError(t, err)
		assert.False(t, result.OK())
		assert.Equal(t, 1, result.Applied)
		assert.Equal(t, inventory.LineStatusInsufficient, result.Lines[0].Status)
		assert.Equal(t, inventory.LineStatusOK, result.Lines[1].Status)
	})
}
