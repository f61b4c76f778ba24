package fxlots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("%w: unsupported theme %q (use light|dark)", ErrInvalidInput, s)
	}
}

// ledgerKeys are the four stores, in export order.
var ledgerKeys = []string{KeyUSDLots, KeyUSDSales, KeyJPYLots, KeyJPYSales}

func bookKeys(c Currency) (lots, sales string) {
	if c == JPY {
		return KeyJPYLots, KeyJPYSales
	}
	return KeyUSDLots, KeyUSDSales
}

// Storage maps books and preferences onto a BlobStore.
//
// Absent or unreadable snapshots load as empty, the same way a fresh install
// looks. Write failures are returned wrapped in ErrPersist.
type Storage struct {
	blobs  BlobStore
	logger *log.Logger
}

func NewStorage(blobs BlobStore, logger *log.Logger) *Storage {
	if logger == nil {
		logger = log.Default()
	}
	return &Storage{blobs: blobs, logger: logger}
}

// loadJSON decodes key into v. It reports false when v was left at its default.
func (s *Storage) loadJSON(ctx context.Context, key string, v any) (bool, error) {
	b, err := s.blobs.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.logger.Printf("warning: %s is unreadable, using default: %v", key, err)
		return false, nil
	}
	return true, nil
}

func (s *Storage) LoadBook(ctx context.Context, c Currency) (Book, error) {
	lotsKey, salesKey := bookKeys(c)
	b := NewBook(c)
	var lots []PurchaseLot
	if ok, err := s.loadJSON(ctx, lotsKey, &lots); err != nil {
		return Book{}, err
	} else if ok && lots != nil {
		b.Lots = lots
	}
	var sales []SaleRecord
	if ok, err := s.loadJSON(ctx, salesKey, &sales); err != nil {
		return Book{}, err
	} else if ok && sales != nil {
		b.Sales = sales
	}
	return b, nil
}

// SaveBook writes both stores of a book together.
func (s *Storage) SaveBook(ctx context.Context, b Book) error {
	lotsKey, salesKey := bookKeys(b.Currency)
	lots, err := json.Marshal(b.Lots)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersist, lotsKey, err)
	}
	sales, err := json.Marshal(b.Sales)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersist, salesKey, err)
	}
	if err := s.blobs.Put(ctx, map[string][]byte{lotsKey: lots, salesKey: sales}); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Document is the import/export shape. Values are kept verbatim.
type Document struct {
	USDLots  json.RawMessage `json:"usdLots"`
	USDSales json.RawMessage `json:"usdSales"`
	JPYLots  json.RawMessage `json:"jpyLots"`
	JPYSales json.RawMessage `json:"jpySales"`
}

// ExportAll serializes the four ledger stores into one document. Missing or
// corrupt stores export as empty arrays.
func (s *Storage) ExportAll(ctx context.Context) ([]byte, error) {
	raw := make(map[string]json.RawMessage, len(ledgerKeys))
	for _, k := range ledgerKeys {
		b, err := s.blobs.Get(ctx, k)
		switch {
		case errors.Is(err, ErrNotFound):
			b = []byte("[]")
		case err != nil:
			return nil, fmt.Errorf("export %s: %w", k, err)
		case !json.Valid(b):
			s.logger.Printf("warning: %s is not valid JSON, exporting []", k)
			b = []byte("[]")
		}
		raw[k] = b
	}
	doc := Document{
		USDLots:  raw[KeyUSDLots],
		USDSales: raw[KeyUSDSales],
		JPYLots:  raw[KeyJPYLots],
		JPYSales: raw[KeyJPYSales],
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ImportAll replaces all four stores with the document's values. The document
// must be a JSON object carrying every store key; values are not inspected
// further. Nothing is written unless the whole document is accepted.
func (s *Storage) ImportAll(ctx context.Context, data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImportFormat, err)
	}
	for _, k := range ledgerKeys {
		if _, err := jsonpath.Get("$."+k, doc); err != nil {
			return fmt.Errorf("%w: missing %q", ErrInvalidImportFormat, k)
		}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImportFormat, err)
	}
	blobs := make(map[string][]byte, len(ledgerKeys))
	for _, k := range ledgerKeys {
		blobs[k] = []byte(fields[k])
	}
	if err := s.blobs.Put(ctx, blobs); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// ResetAll clears the four stores and the theme preference.
func (s *Storage) ResetAll(ctx context.Context) error {
	keys := append(append([]string(nil), ledgerKeys...), KeyTheme)
	if err := s.blobs.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Theme returns the stored preference, light when unset.
func (s *Storage) Theme(ctx context.Context) (Theme, error) {
	var v string
	ok, err := s.loadJSON(ctx, KeyTheme, &v)
	if err != nil || !ok {
		return ThemeLight, err
	}
	t, err := ParseTheme(v)
	if err != nil {
		s.logger.Printf("warning: %v, using %s", err, ThemeLight)
		return ThemeLight, nil
	}
	return t, nil
}

func (s *Storage) SetTheme(ctx context.Context, t Theme) error {
	t, err := ParseTheme(string(t))
	if err != nil {
		return err
	}
	b, _ := json.Marshal(string(t))
	if err := s.blobs.Put(ctx, map[string][]byte{KeyTheme: b}); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}
