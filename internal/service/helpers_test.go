package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/quinloq/examgate/config"
	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/event"
	"github.com/quinloq/examgate/internal/model"
	"github.com/quinloq/examgate/internal/repository"
	"github.com/quinloq/examgate/internal/scheduler"
	"github.com/quinloq/examgate/internal/secure"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.ExamSession{},
		&model.SessionToken{},
		&model.Question{},
		&model.Attempt{},
		&model.Answer{},
		&model.SyncQueueItem{},
		&model.ActivityLog{},
		&model.ScheduledJob{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// fixture wires the full service stack against an in-memory database. The
// scheduler is never started; tests drive it with RunDueSync.
type fixture struct {
	db          *gorm.DB
	sessionRepo repository.SessionRepository
	attemptRepo repository.AttemptRepository
	answerRepo  repository.AnswerRepository
	syncRepo    repository.SyncRepository
	jobRepo     repository.JobRepository
	cipher      *secure.Cipher
	bus         *event.Bus
	sched       *scheduler.Scheduler
	attemptSvc  AttemptService
	gradingSvc  GradingService
	syncSvc     SyncService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:          db,
		sessionRepo: repository.NewSessionRepository(db),
		attemptRepo: repository.NewAttemptRepository(db),
		answerRepo:  repository.NewAnswerRepository(db),
		syncRepo:    repository.NewSyncRepository(db),
		jobRepo:     repository.NewJobRepository(db),
		cipher:      secure.NewCipher("test-secret"),
		bus:         event.NewBus(),
	}
	t.Cleanup(f.bus.Close)

	f.sched = scheduler.NewScheduler(f.jobRepo, scheduler.WithBaseBackoff(time.Millisecond))
	f.attemptSvc = NewAttemptService(f.sessionRepo, f.attemptRepo, f.answerRepo, NewPackageBuilder(), f.sched, f.bus)
	f.gradingSvc = NewGradingService(f.attemptRepo, f.answerRepo, f.sessionRepo, f.cipher, f.bus, nil)
	f.syncSvc = NewSyncService(f.syncRepo, repository.NewActivityRepository(db), f.attemptSvc, f.sched,
		&config.Config{Sync: config.Sync{MaxRetries: 2}})

	f.sched.Register(KindTimeout, 1, f.attemptSvc.HandleTimeout)
	f.sched.Register(KindGrade, 1, f.gradingSvc.HandleGradeJob)
	f.sched.Register(KindSyncProcess, 1, f.syncSvc.Process)
	return f
}

func (f *fixture) encrypt(t *testing.T, plaintext string) string {
	t.Helper()
	enc, err := f.cipher.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt answer key: %v", err)
	}
	return enc
}

// seedSession creates an active session with a token for user 1 and the given
// questions, returning the session.
func (f *fixture) seedSession(t *testing.T, questions ...model.Question) *model.ExamSession {
	t.Helper()
	session := &model.ExamSession{
		TenantID:        1,
		Title:           "Algebra Midterm",
		Status:          model.SessionActive,
		StartsAt:        time.Now().Add(-time.Hour),
		EndsAt:          time.Now().Add(time.Hour),
		DurationMinutes: 60,
		PassingPercent:  50,
	}
	if err := f.sessionRepo.Create(session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	for i := range questions {
		questions[i].SessionID = session.ID
		if questions[i].Position == 0 {
			questions[i].Position = i + 1
		}
		if err := f.db.Create(&questions[i]).Error; err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
	if err := f.sessionRepo.CreateToken(&model.SessionToken{SessionID: session.ID, UserID: 1, Code: "TOKEN-1"}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	return session
}

func (f *fixture) startAttempt(t *testing.T, sessionID uint) uint {
	t.Helper()
	pkg, err := f.attemptSvc.DownloadPackage(downloadReq(sessionID, "dl-"+uuid.NewString()))
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return pkg.AttemptID
}

func (f *fixture) runJobs(t *testing.T) {
	t.Helper()
	f.sched.RunDueSync(context.Background())
}

func downloadReq(sessionID uint, key string) dto.DownloadPackageRequest {
	return dto.DownloadPackageRequest{
		SessionID:         sessionID,
		UserID:            1,
		TokenCode:         "TOKEN-1",
		DeviceFingerprint: "device-abc",
		IdempotencyKey:    key,
	}
}
