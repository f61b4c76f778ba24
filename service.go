package fxlots

import (
	"context"
	"log"
	"sync"
)

/* ===================== Ledger service ===================== */

// LedgerService runs ledger operations against stored books. Each mutation
// loads the book, applies one operation and saves the result; nothing is
// saved when the operation is rejected.
type LedgerService struct {
	store  *Storage
	rates  RateSource
	logger *log.Logger
	today  func() Date

	mu sync.Mutex
}

// NewLedgerService wires a service. rates may be nil, in which case
// summaries carry no valuation.
func NewLedgerService(store *Storage, rates RateSource, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Default()
	}
	return &LedgerService{store: store, rates: rates, logger: logger, today: Today}
}

func (s *LedgerService) mutate(ctx context.Context, c Currency, op string, fn func(Book) (Book, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.store.LoadBook(ctx, c)
	if err != nil {
		return err
	}
	nb, err := fn(b)
	if err != nil {
		return err
	}
	if err := s.store.SaveBook(ctx, nb); err != nil {
		s.logger.Printf("%s %s: save failed: %v", c, op, err)
		return err
	}
	s.logger.Printf("%s %s", c, op)
	return nil
}

func (s *LedgerService) CreateLot(ctx context.Context, c Currency, form LotForm) (PurchaseLot, error) {
	in, err := form.toInput(c, s.today())
	if err != nil {
		return PurchaseLot{}, err
	}
	var lot PurchaseLot
	err = s.mutate(ctx, c, "create lot", func(b Book) (Book, error) {
		nb, l, err := b.CreateLot(in)
		lot = l
		return nb, err
	})
	return lot, err
}

func (s *LedgerService) EditLot(ctx context.Context, c Currency, id string, form LotForm) (PurchaseLot, error) {
	in, err := form.toInput(c, s.today())
	if err != nil {
		return PurchaseLot{}, err
	}
	var lot PurchaseLot
	err = s.mutate(ctx, c, "edit lot "+id, func(b Book) (Book, error) {
		nb, l, err := b.EditLot(id, in)
		lot = l
		return nb, err
	})
	return lot, err
}

func (s *LedgerService) DeleteLot(ctx context.Context, c Currency, id string) error {
	return s.mutate(ctx, c, "delete lot "+id, func(b Book) (Book, error) {
		return b.DeleteLot(id)
	})
}

func (s *LedgerService) CreateSale(ctx context.Context, c Currency, form SaleForm) (SaleRecord, error) {
	in, err := form.toInput(c, s.today())
	if err != nil {
		return SaleRecord{}, err
	}
	var sale SaleRecord
	err = s.mutate(ctx, c, "create sale", func(b Book) (Book, error) {
		nb, sr, err := b.CreateSale(in)
		sale = sr
		return nb, err
	})
	return sale, err
}

func (s *LedgerService) EditSale(ctx context.Context, c Currency, id string, form SaleForm) (SaleRecord, error) {
	in, err := form.toInput(c, s.today())
	if err != nil {
		return SaleRecord{}, err
	}
	var sale SaleRecord
	err = s.mutate(ctx, c, "edit sale "+id, func(b Book) (Book, error) {
		nb, sr, err := b.EditSale(id, in)
		sale = sr
		return nb, err
	})
	return sale, err
}

func (s *LedgerService) DeleteSale(ctx context.Context, c Currency, id string) error {
	return s.mutate(ctx, c, "delete sale "+id, func(b Book) (Book, error) {
		return b.DeleteSale(id)
	})
}

func (s *LedgerService) Book(ctx context.Context, c Currency) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadBook(ctx, c)
}

func (s *LedgerService) Lot(ctx context.Context, c Currency, id string) (PurchaseLot, error) {
	b, err := s.Book(ctx, c)
	if err != nil {
		return PurchaseLot{}, err
	}
	return b.Lot(id)
}

func (s *LedgerService) Sale(ctx context.Context, c Currency, id string) (SaleRecord, error) {
	b, err := s.Book(ctx, c)
	if err != nil {
		return SaleRecord{}, err
	}
	return b.Sale(id)
}

// books loads both ledgers under one lock so they come from the same moment.
func (s *LedgerService) books(ctx context.Context) (usd, jpy Book, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if usd, err = s.store.LoadBook(ctx, USD); err != nil {
		return
	}
	jpy, err = s.store.LoadBook(ctx, JPY)
	return
}

// value attaches a live valuation when a rate source is configured. A
// failing source only costs the valuation.
func (s *LedgerService) value(sum Summary) Summary {
	if s.rates == nil {
		return sum
	}
	rate, asOf, err := s.rates.Rate(sum.Currency)
	if err != nil {
		s.logger.Printf("warning: %s rate unavailable: %v", sum.Currency, err)
		return sum
	}
	return sum.withValuation(rate, asOf)
}

func (s *LedgerService) Summary(ctx context.Context, c Currency) (Summary, error) {
	b, err := s.Book(ctx, c)
	if err != nil {
		return Summary{}, err
	}
	return s.value(Summarize(b)), nil
}

func (s *LedgerService) Dashboard(ctx context.Context) (Dashboard, error) {
	usd, jpy, err := s.books(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d := NewDashboard(usd, jpy)
	d.USD = s.value(d.USD)
	d.JPY = s.value(d.JPY)
	return d, nil
}

func (s *LedgerService) History(ctx context.Context, f HistoryFilter) ([]Transaction, error) {
	usd, jpy, err := s.books(ctx)
	if err != nil {
		return nil, err
	}
	return History(f, usd, jpy), nil
}

func (s *LedgerService) Export(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ExportAll(ctx)
}

// Import overwrites all stores. Imported books that do not reconcile are
// kept as they are and reported in the log.
func (s *LedgerService) Import(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.ImportAll(ctx, data); err != nil {
		return err
	}
	s.logger.Printf("imported %d bytes", len(data))
	for _, c := range Currencies {
		b, err := s.store.LoadBook(ctx, c)
		if err != nil {
			return err
		}
		if err := b.Check(); err != nil {
			s.logger.Printf("warning: imported %s ledger is inconsistent: %v", c, err)
		}
	}
	return nil
}

func (s *LedgerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.ResetAll(ctx); err != nil {
		return err
	}
	s.logger.Printf("reset all stores")
	return nil
}

func (s *LedgerService) Theme(ctx context.Context) (Theme, error) {
	return s.store.Theme(ctx)
}

func (s *LedgerService) SetTheme(ctx context.Context, t Theme) error {
	return s.store.SetTheme(ctx, t)
}
