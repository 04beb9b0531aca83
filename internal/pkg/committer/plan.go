// Package committer collects Spanner mutations into a plan and applies them in
// one transaction.
//
// Repositories never write directly. They return mutations, the caller adds
// them to a CommitPlan together with any outbox rows, and the Committer applies
// the whole plan atomically:
//
//	plan := committer.NewPlan()
//	plan.Add(eventMut)
//	plan.AddMultiple(outboxMuts)
//	err := c.ApplyWithVersionCheck(ctx, "events", spanner.Key{id}, event.Version(), plan)
package committer

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"
)

// VersionColumn is the optimistic lock column every versioned table carries.
const VersionColumn = "version"

var (
	// ErrVersionConflict means the row changed since it was read.
	ErrVersionConflict = errors.New("committer: version conflict")

	// ErrRowNotFound means the versioned row does not exist.
	ErrRowNotFound = errors.New("committer: row not found")
)

// CommitPlan is an ordered list of mutations applied together.
type CommitPlan struct {
	mutations []*spanner.Mutation
}

// NewPlan creates an empty CommitPlan.
func NewPlan() *CommitPlan {
	return &CommitPlan{
		mutations: make([]*spanner.Mutation, 0),
	}
}

// Add appends a mutation. Nil mutations are ignored.
func (cp *CommitPlan) Add(mut *spanner.Mutation) {
	if mut != nil {
		cp.mutations = append(cp.mutations, mut)
	}
}

// AddMultiple appends several mutations.
func (cp *CommitPlan) AddMultiple(muts []*spanner.Mutation) {
	for _, mut := range muts {
		cp.Add(mut)
	}
}

// Mutations returns the collected mutations.
func (cp *CommitPlan) Mutations() []*spanner.Mutation {
	return cp.mutations
}

// IsEmpty returns true if the plan has no mutations.
func (cp *CommitPlan) IsEmpty() bool {
	return len(cp.mutations) == 0
}

// Committer applies CommitPlans.
type Committer struct {
	client *spanner.Client
}

// NewCommitter creates a new Committer.
func NewCommitter(client *spanner.Client) *Committer {
	return &Committer{client: client}
}

// ApplyWithVersionCheck writes the plan only if the version column of the row
// at key in table still equals expectedVersion. A mismatch returns
// ErrVersionConflict and a missing row ErrRowNotFound; nothing is written in
// either case.
func (c *Committer) ApplyWithVersionCheck(ctx context.Context, table string, key spanner.Key, expectedVersion int64, plan *CommitPlan) error {
	if plan.IsEmpty() {
		return nil
	}

	_, err := c.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		row, err := txn.ReadRow(ctx, table, key, []string{VersionColumn})
		if err != nil {
			if spanner.ErrCode(err) == codes.NotFound {
				return ErrRowNotFound
			}
			return fmt.Errorf("failed to read %s version: %w", table, err)
		}

		var current int64
		if err := row.Column(0, &current); err != nil {
			return fmt.Errorf("failed to parse %s version: %w", table, err)
		}
		if err := CheckVersion(expectedVersion, current); err != nil {
			return err
		}

		return txn.BufferWrite(plan.Mutations())
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrRowNotFound) {
			return err
		}
		return fmt.Errorf("failed to apply commit plan with version check: %w", err)
	}

	return nil
}

// CheckVersion compares the version a caller read with the stored one.
func CheckVersion(expected, current int64) error {
	if expected != current {
		return fmt.Errorf("%w: expected %d, got %d", ErrVersionConflict, expected, current)
	}
	return nil
}
