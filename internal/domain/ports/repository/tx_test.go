//go:build !integration

package repository

import (
	"context"
	"testing"
)

func TestAfterCommit(t *testing.T) {
	t.Run("no scope runs immediately", func(t *testing.T) {
		ran := false
		AfterCommit(context.Background(), func(context.Context) { ran = true })
		if !ran {
			t.Fatal("hook not run")
		}
	})

	t.Run("scope defers until commit", func(t *testing.T) {
		ctx, commit := WithCommitHooks(context.Background())
		var order []int
		AfterCommit(ctx, func(context.Context) { order = append(order, 1) })
		AfterCommit(ctx, func(context.Context) { order = append(order, 2) })
		if len(order) != 0 {
			t.Fatalf("hooks ran early: %v", order)
		}
		commit(ctx)
		commit(ctx)
		if len(order) != 2 || order[0] != 1 || order[1] != 2 {
			t.Fatalf("expected each hook once in order, got %v", order)
		}
	})
}
