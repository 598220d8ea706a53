package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/claim-service/internal/domain"
	"github.com/spec-kit/claim-service/internal/events"
	apperrors "github.com/spec-kit/claim-service/pkg/util"
)

type fakeReportCache struct {
	store  map[string][]byte
	gets   int
	sets   int
	evicts []string
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{store: map[string][]byte{}}
}

func (c *fakeReportCache) Get(_ context.Context, key string) ([]byte, error) {
	c.gets++
	raw, ok := c.store[key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (c *fakeReportCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.sets++
	c.store[key] = value
	return nil
}

func (c *fakeReportCache) Delete(_ context.Context, key string) error {
	c.evicts = append(c.evicts, key)
	delete(c.store, key)
	return nil
}

func seedApproved(repo *fakeClaimRepo, name, month string, hours, rate int64) {
	repo.nextID++
	id := fmt.Sprintf("seed-%d", repo.nextID)
	repo.claims[id] = &domain.Claim{
		ID:           id,
		LecturerName: name,
		Month:        month,
		HoursWorked:  decimal.NewFromInt(hours),
		HourlyRate:   decimal.NewFromInt(rate),
		Status:       domain.ClaimStatusApproved,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestMonthlySummaryAggregates(t *testing.T) {
	repo := newFakeClaimRepo()
	seedApproved(repo, "Dr. Smith", "March 2025", 10, 150)
	seedApproved(repo, "Dr. Smith", "March 2025", 20, 250)
	seedApproved(repo, "Dr. Jones", "March 2025", 5, 100)
	seedApproved(repo, "Dr. Jones", "April 2025", 8, 100)

	svc := NewReportService(repo, nil, 0, nil)
	summary, err := svc.Monthly(context.Background(), "March 2025")
	require.NoError(t, err)

	assert.Equal(t, "March 2025", summary.SelectedMonth)
	require.Len(t, summary.Rows, 2)

	byName := map[string]SummaryRow{}
	for _, row := range summary.Rows {
		byName[row.LecturerName] = row
	}
	smith := byName["Dr. Smith"]
	assert.Equal(t, "30", smith.TotalHours.String())
	assert.Equal(t, "200", smith.AverageRate.String())
	assert.Equal(t, "6500", smith.TotalAmount.String())

	assert.Equal(t, "35", summary.GrandTotalHours.String())
	assert.Equal(t, "7000", summary.GrandTotalAmount.String())
	assert.ElementsMatch(t, []string{"March 2025", "April 2025"}, summary.AvailableMonths)
}

func TestMonthlyDefaultsToFirstAvailableMonth(t *testing.T) {
	repo := newFakeClaimRepo()
	seedApproved(repo, "Dr. Smith", "February 2025", 10, 150)

	svc := NewReportService(repo, nil, 0, nil)
	summary, err := svc.Monthly(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "February 2025", summary.SelectedMonth)
}

func TestMonthlyDefaultsToCurrentMonthWhenEmpty(t *testing.T) {
	svc := NewReportService(newFakeClaimRepo(), nil, 0, nil)
	summary, err := svc.Monthly(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Format("January 2006"), summary.SelectedMonth)
	assert.Empty(t, summary.Rows)
	assert.Equal(t, "0", summary.GrandTotalAmount.String())
}

func TestMonthlyUsesCacheOnSecondRead(t *testing.T) {
	repo := newFakeClaimRepo()
	seedApproved(repo, "Dr. Smith", "March 2025", 10, 150)
	cache := newFakeReportCache()

	svc := NewReportService(repo, cache, time.Minute, nil)
	_, err := svc.Monthly(context.Background(), "March 2025")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	seedApproved(repo, "Dr. Smith", "March 2025", 99, 150)
	summary, err := svc.Monthly(context.Background(), "March 2025")
	require.NoError(t, err)

	// Served from cache; the later approval is invisible until eviction.
	assert.Equal(t, "10", summary.GrandTotalHours.String())
	assert.Equal(t, 1, cache.sets)
}

func TestApprovalEvictsCachedMonth(t *testing.T) {
	repo := newFakeClaimRepo()
	seedApproved(repo, "Dr. Smith", "March 2025", 10, 150)
	cache := newFakeReportCache()
	dispatcher := events.NewInMemoryDispatcher()

	svc := NewReportService(repo, cache, time.Minute, nil)
	svc.RegisterInvalidation(dispatcher)

	_, err := svc.Monthly(context.Background(), "March 2025")
	require.NoError(t, err)

	err = dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventClaimStatusChanged,
		Payload: events.ClaimStatusChangedPayload{
			OldStatus: domain.ClaimStatusPendingReview,
			NewStatus: domain.ClaimStatusApproved,
			Month:     "March 2025",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, cache.evicts, "claims:summary:March 2025")

	seedApproved(repo, "Dr. Smith", "March 2025", 90, 150)
	summary, err := svc.Monthly(context.Background(), "March 2025")
	require.NoError(t, err)
	assert.Equal(t, "100", summary.GrandTotalHours.String())
}

func TestRejectionDoesNotEvictCache(t *testing.T) {
	cache := newFakeReportCache()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewReportService(newFakeClaimRepo(), cache, time.Minute, nil)
	svc.RegisterInvalidation(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type: events.EventClaimStatusChanged,
		Payload: events.ClaimStatusChangedPayload{
			OldStatus: domain.ClaimStatusSubmitted,
			NewStatus: domain.ClaimStatusRejected,
			Month:     "March 2025",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, cache.evicts)
}

func TestInvoiceRequiresBothParams(t *testing.T) {
	svc := NewReportService(newFakeClaimRepo(), nil, 0, nil)
	_, err := svc.Invoice(context.Background(), "", "March 2025")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestInvoiceNotFoundForEmptyMonth(t *testing.T) {
	svc := NewReportService(newFakeClaimRepo(), nil, 0, nil)
	_, err := svc.Invoice(context.Background(), "Dr. Smith", "March 2025")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestExportApprovedCSV(t *testing.T) {
	repo := newFakeClaimRepo()
	seedApproved(repo, "Dr. Smith", "March 2025", 10, 150)
	svc := NewReportService(repo, nil, 0, nil)

	data, fileName, err := svc.ExportApprovedCSV(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fileName, "ApprovedClaims_All_"))
	assert.True(t, strings.HasSuffix(fileName, ".csv"))

	require.True(t, len(data) > 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3])

	body := string(data[3:])
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Id,Lecturer,Month,Hours,Rate,Amount,Status,Attachment", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "Dr. Smith")
	assert.Contains(t, lines[1], "1500")
	assert.Contains(t, lines[1], "APPROVED")
}

func TestExportApprovedCSVMonthFilterInFilename(t *testing.T) {
	repo := newFakeClaimRepo()
	seedApproved(repo, "Dr. Smith", "March 2025", 10, 150)
	seedApproved(repo, "Dr. Smith", "April 2025", 12, 150)
	svc := NewReportService(repo, nil, 0, nil)

	month := "March 2025"
	data, fileName, err := svc.ExportApprovedCSV(context.Background(), &month)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fileName, "ApprovedClaims_March_2025_"))
	assert.NotContains(t, string(data), "April 2025")
}
