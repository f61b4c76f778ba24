package fxlots

import (
	"context"
	"errors"
)

// ===== Ports (interfaces) =====

// BlobStore is a key-value store of opaque snapshots.
type BlobStore interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes every entry; backends that can do so apply them atomically.
	Put(ctx context.Context, blobs map[string][]byte) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Storage keys.
const (
	KeyUSDLots  = "usdLots"
	KeyUSDSales = "usdSales"
	KeyJPYLots  = "jpyLots"
	KeyJPYSales = "jpySales"
	KeyTheme    = "theme"
)

// Ledger errors. Every operation that returns one of these left state unmodified.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrInvalidReduction      = errors.New("initial quantity below sold quantity")
	ErrReferencedByOpenSales = errors.New("lot is referenced by sales")
	ErrInsufficientQuantity  = errors.New("insufficient quantity")
	ErrInvalidImportFormat   = errors.New("invalid import format")
	ErrPersist               = errors.New("persist")
)

/* ======================== small helpers ======================== */

// insertionSort is stable, so equal dates keep insertion order.
func insertionSort[T any](xs []T, less func(a, b T) bool) {
	for i := 1; i < len(xs); i++ {
		j := i
		for j > 0 && less(xs[j], xs[j-1]) {
			xs[j], xs[j-1] = xs[j-1], xs[j]
			j--
		}
	}
}
