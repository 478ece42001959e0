package service

import (
	"context"
	"time"

	"github.com/channelgate/channelgate/internal/api/dto"
	ierr "github.com/channelgate/channelgate/internal/errors"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

// subscriptionCSVRow is the CSV shape of one subscription for exports.
type subscriptionCSVRow struct {
	SubscriberID int64  `csv:"subscriber_id"`
	ProfileName  string `csv:"profile_name"`
	PlanTier     string `csv:"plan_tier"`
	ExpiryTime   string `csv:"expiry_time"`
	GrantedBy    int64  `csv:"granted_by"`
	IsActive     bool   `csv:"is_active"`
	CreatedAt    string `csv:"created_at"`
}

// ExportService renders subscription reports.
type ExportService interface {
	// ExportCSV returns all subscriptions as CSV, with a generated filename.
	ExportCSV(ctx context.Context) (data []byte, filename string, err error)
}

type exportService struct {
	grantService GrantService
	log          *logger.Logger
}

// NewExportService creates a new export service
func NewExportService(grantService GrantService, log *logger.Logger) ExportService {
	return &exportService{grantService: grantService, log: log}
}

func (s *exportService) ExportCSV(ctx context.Context) ([]byte, string, error) {
	subs, err := s.grantService.ListAll(ctx)
	if err != nil {
		return nil, "", err
	}

	rows := lo.Map(subs, func(sub *dto.SubscriptionResponse, _ int) *subscriptionCSVRow {
		return &subscriptionCSVRow{
			SubscriberID: sub.SubscriberID,
			ProfileName:  sub.ProfileName,
			PlanTier:     sub.PlanTier.String(),
			ExpiryTime:   sub.ExpiryTime.Format(time.RFC3339),
			GrantedBy:    sub.GrantedBy,
			IsActive:     sub.IsActive,
			CreatedAt:    sub.CreatedAt.Format(time.RFC3339),
		}
	})

	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return nil, "", ierr.WithError(err).
			WithHint("Failed to render CSV export").
			Mark(ierr.ErrInternal)
	}

	filename := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXPORT) + ".csv"
	s.log.Infow("rendered subscription export", "rows", len(rows), "filename", filename)

	return []byte(out), filename, nil
}
