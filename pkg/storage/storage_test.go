package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/chesscast/chesscast/pkg/config"
	"github.com/chesscast/chesscast/pkg/logger"
)

func TestNoopProvider(t *testing.T) {
	st, err := New(context.Background(), config.Storage{}, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	ctx := context.Background()
	if err = st.Save(ctx, "g1_mapping.json", []byte("{}")); err != nil {
		t.Errorf("expected a silent save, got %v", err)
	}
	if st.Has(ctx, "g1_mapping.json") {
		t.Errorf("expected nothing in the noop storage")
	}
	if _, err = st.Load(ctx, "g1_mapping.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUnknownProvider(t *testing.T) {
	if _, err := New(context.Background(), config.Storage{Provider: "ftp"}, logger.Nop()); err == nil {
		t.Errorf("expected an unknown provider error")
	}
}
