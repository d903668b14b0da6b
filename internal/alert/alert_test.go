package alert

import (
	"errors"
	"testing"
	"time"

	"github.com/siteeye/internal/config"
	"github.com/siteeye/internal/database"
	"github.com/siteeye/internal/models"
	"github.com/siteeye/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	alerts      *repository.AlertRepository
	escalations *repository.EscalationRepository
	facts       *repository.FactRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	logger := zap.NewNop()
	return &testEnv{
		db:          db,
		alerts:      repository.NewAlertRepository(db, logger),
		escalations: repository.NewEscalationRepository(db, logger),
		facts:       repository.NewFactRepository(db),
	}
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		DetectionInterval:    5 * time.Minute,
		EscalationInterval:   2 * time.Minute,
		CleanupInterval:      time.Hour,
		EscalationTimeout:    15 * time.Minute,
		AbsenceCheckHour:     9,
		CheckoutCheckHour:    19,
		StandardWorkdayHours: 10,
		Timezone:             "UTC",
		FirstTierRecipient:   "operations",
		SecondTierRecipient:  "management",
	}
}

// fakeNotifier records delivery attempts without any transport.
type fakeNotifier struct {
	fail  bool
	calls int
}

func (f *fakeNotifier) Method() string { return "fake" }

func (f *fakeNotifier) Notify(alert *models.Alert, event *models.EscalationEvent) (models.NotificationRecord, error) {
	f.calls++
	record := models.NotificationRecord{
		ID:        "n1",
		Recipient: event.EscalatedTo,
		Method:    f.Method(),
		SentAt:    time.Now(),
		Status:    "sent",
	}
	if f.fail {
		record.Status = "failed"
		return record, errors.New("transport down")
	}
	return record, nil
}
