package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/repository"
	"github.com/dukerupert/freyja/internal/telemetry"
)

const (
	// MaxAllocationAttempts bounds collision retries for one identifier.
	MaxAllocationAttempts = 10

	invoiceNumberPrefix   = "INV-"
	invoiceSuffixLength   = 6
	invoiceSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	shareTokenBytes       = 32
)

// DocumentAllocator produces collision-free document identifiers.
type DocumentAllocator interface {
	// AllocateInvoiceNumber returns INV-YYYYMMDD-XXXXXX, dated by the UTC
	// allocation instant, not already used by any invoice.
	AllocateInvoiceNumber(ctx context.Context) (string, error)

	// AllocateShareToken returns 256 random bits, hex-encoded, not already
	// used by any invoice.
	AllocateShareToken(ctx context.Context) (string, error)
}

// AllocatorOption customizes a DocumentAllocator.
type AllocatorOption func(*documentAllocator)

// WithClock sets the allocation clock.
func WithClock(now func() time.Time) AllocatorOption {
	return func(a *documentAllocator) { a.now = now }
}

// WithEntropy sets the random source. It must be safe for concurrent use.
func WithEntropy(r io.Reader) AllocatorOption {
	return func(a *documentAllocator) { a.rand = r }
}

type documentAllocator struct {
	repo    repository.Querier
	metrics *telemetry.BusinessMetrics
	now     func() time.Time
	rand    io.Reader
}

// NewDocumentAllocator creates a DocumentAllocator that checks candidates
// against repo.
func NewDocumentAllocator(repo repository.Querier, metrics *telemetry.BusinessMetrics, opts ...AllocatorOption) DocumentAllocator {
	a := &documentAllocator{
		repo:    repo,
		metrics: metrics,
		now:     time.Now,
		rand:    rand.Reader,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *documentAllocator) AllocateInvoiceNumber(ctx context.Context) (string, error) {
	return a.allocate(ctx, "invoice_number", a.newInvoiceNumber, a.repo.InvoiceNumberExists)
}

func (a *documentAllocator) AllocateShareToken(ctx context.Context) (string, error) {
	return a.allocate(ctx, "share_token", a.newShareToken, a.repo.ShareTokenExists)
}

func (a *documentAllocator) allocate(
	ctx context.Context,
	kind string,
	generate func() (string, error),
	exists func(context.Context, string) (bool, error),
) (string, error) {
	op := "allocate." + kind

	for attempt := 0; attempt < MaxAllocationAttempts; attempt++ {
		candidate, err := generate()
		if err != nil {
			return "", domain.Internal(err, op, "failed to generate identifier")
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", domain.Internal(err, op, "failed to check identifier")
		}
		if !taken {
			return candidate, nil
		}
		a.metrics.RecordAllocationRetry(kind)
	}

	return "", fmt.Errorf("%w: %s after %d attempts", ErrAllocationExhausted, kind, MaxAllocationAttempts)
}

func (a *documentAllocator) newInvoiceNumber() (string, error) {
	suffix, err := randomString(a.rand, invoiceSuffixAlphabet, invoiceSuffixLength)
	if err != nil {
		return "", err
	}
	return invoiceNumberPrefix + a.now().UTC().Format("20060102") + "-" + suffix, nil
}

func (a *documentAllocator) newShareToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := io.ReadFull(a.rand, b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// randomString draws n characters uniformly from alphabet. Bytes at or above
// the largest multiple of len(alphabet) are rejected to avoid modulo bias.
func randomString(r io.Reader, alphabet string, n int) (string, error) {
	limit := 256 - (256 % len(alphabet))
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
