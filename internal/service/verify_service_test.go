package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/keyward/backend/internal/crypto"
	"github.com/keyward/backend/internal/domain"
	"github.com/keyward/backend/internal/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	snap *repository.VerificationSnapshot
	err  error
}

func (f *fakeStore) Load(ctx context.Context, teamID uuid.UUID, lookupKey string, now time.Time) (*repository.VerificationSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

type fakeLicenseRepo struct {
	mu          sync.Mutex
	activations []time.Time
	err         error
	applyTo     *domain.License
}

func (f *fakeLicenseRepo) Create(ctx context.Context, license *domain.License) error {
	return nil
}

func (f *fakeLicenseRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.License, error) {
	return nil, repository.ErrLicenseNotFound
}

func (f *fakeLicenseRepo) FindByLookupKey(ctx context.Context, teamID uuid.UUID, lookupKey string) (*domain.License, error) {
	return nil, repository.ErrLicenseNotFound
}

func (f *fakeLicenseRepo) ActivateExpiration(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.activations = append(f.activations, expiresAt)
	if f.applyTo != nil && f.applyTo.ExpirationDate == nil {
		t := expiresAt
		f.applyTo.ExpirationDate = &t
	}
	return nil
}

func (f *fakeLicenseRepo) activationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.activations)
}

type fakeBlacklistRepo struct {
	mu   sync.Mutex
	hits map[uuid.UUID]int
}

func (f *fakeBlacklistRepo) Create(ctx context.Context, entry *domain.BlacklistEntry) error {
	return nil
}

func (f *fakeBlacklistRepo) FindByTeam(ctx context.Context, teamID uuid.UUID) ([]domain.BlacklistEntry, error) {
	return nil, nil
}

func (f *fakeBlacklistRepo) IncrementHits(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hits == nil {
		f.hits = make(map[uuid.UUID]int)
	}
	f.hits[id]++
	return nil
}

func (f *fakeBlacklistRepo) hitCount(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[id]
}

type fakeHeartbeatRepo struct {
	mu      sync.Mutex
	upserts []domain.Heartbeat
	err     error
}

func (f *fakeHeartbeatRepo) Upsert(ctx context.Context, hb *domain.Heartbeat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, *hb)
	return nil
}

func (f *fakeHeartbeatRepo) FindByLicense(ctx context.Context, licenseID uuid.UUID) ([]domain.Heartbeat, error) {
	return nil, nil
}

func (f *fakeHeartbeatRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeGeo struct {
	country string
	err     error
}

func (f *fakeGeo) Country(ctx context.Context, ip string) (string, error) {
	return f.country, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []*domain.RequestLog
}

func (f *fakeRecorder) Record(entry *domain.RequestLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeRecorder) last() *domain.RequestLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

var testStorageKey = [32]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32}

type testEnv struct {
	svc        *VerifyService
	store      *fakeStore
	licenses   *fakeLicenseRepo
	blacklist  *fakeBlacklistRepo
	heartbeats *fakeHeartbeatRepo
	geo        *fakeGeo
	recorder   *fakeRecorder
}

func newTestEnv(snap *repository.VerificationSnapshot) *testEnv {
	env := &testEnv{
		store:      &fakeStore{snap: snap},
		licenses:   &fakeLicenseRepo{},
		blacklist:  &fakeBlacklistRepo{},
		heartbeats: &fakeHeartbeatRepo{},
		geo:        &fakeGeo{country: "US"},
		recorder:   &fakeRecorder{},
	}
	if snap != nil {
		env.licenses.applyTo = snap.License
	}
	env.svc = NewVerifyService(
		env.store,
		env.licenses,
		env.blacklist,
		env.heartbeats,
		env.geo,
		crypto.NewLicenseHasher("test-lookup-secret"),
		crypto.NewSecretBox(&testStorageKey),
		env.recorder,
		zap.NewNop(),
	)
	return env
}

func baseSnapshot() *repository.VerificationSnapshot {
	teamID := uuid.New()
	return &repository.VerificationSnapshot{
		Team: &domain.Team{
			ID: teamID,
			Settings: &domain.TeamSettings{
				TeamID:               teamID,
				IPLimitPeriod:        domain.IPLimitPeriodDay,
				DeviceTimeoutMinutes: 10,
			},
		},
		License: &domain.License{
			ID:             uuid.New(),
			TeamID:         teamID,
			ExpirationType: domain.ExpirationTypeNever,
		},
	}
}

func baseRequest(snap *repository.VerificationSnapshot) *VerifyRequest {
	return &VerifyRequest{
		TeamID:     snap.Team.ID,
		LicenseKey: "key-abc",
		IPAddress:  "198.51.100.7",
	}
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestVerifyValidLicense(t *testing.T) {
	snap := baseSnapshot()
	env := newTestEnv(snap)

	result := env.svc.Verify(context.Background(), baseRequest(snap))

	require.Equal(t, OutcomeValid, result.Outcome)
	require.True(t, result.Outcome.Valid())
	require.False(t, result.Timestamp.IsZero())
	require.Empty(t, result.ChallengeResponse)

	entry := env.recorder.last()
	require.NotNil(t, entry)
	require.Equal(t, string(OutcomeValid), entry.Outcome)
	require.Equal(t, 200, entry.HTTPStatus)
	require.NotNil(t, entry.LicenseID)
	require.Equal(t, snap.License.ID, *entry.LicenseID)
	require.NotNil(t, entry.KeyLookup)
}

func TestVerifyStoreFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome Outcome
	}{
		{"team not found", repository.ErrTeamNotFound, OutcomeTeamNotFound},
		{"license not found", repository.ErrLicenseNotFound, OutcomeLicenseNotFound},
		{"infrastructure failure", errors.New("connection refused"), OutcomeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(nil)
			env.store.err = tt.err

			result := env.svc.Verify(context.Background(), &VerifyRequest{
				TeamID:     uuid.New(),
				LicenseKey: "key-abc",
				IPAddress:  "198.51.100.7",
			})

			require.Equal(t, tt.outcome, result.Outcome)
			entry := env.recorder.last()
			require.NotNil(t, entry)
			require.Equal(t, string(tt.outcome), entry.Outcome)
			require.Nil(t, entry.LicenseID)
		})
	}
}

func TestVerifyBlacklist(t *testing.T) {
	t.Run("ip hit increments counter", func(t *testing.T) {
		snap := baseSnapshot()
		entryID := uuid.New()
		snap.Team.Blacklist = []domain.BlacklistEntry{
			{ID: entryID, TeamID: snap.Team.ID, Type: domain.BlacklistTypeIPAddress, Value: "198.51.100.7"},
		}
		env := newTestEnv(snap)

		result := env.svc.Verify(context.Background(), baseRequest(snap))

		require.Equal(t, OutcomeIPBlacklisted, result.Outcome)
		require.Eventually(t, func() bool {
			return env.blacklist.hitCount(entryID) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("ip checked before country", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Team.Blacklist = []domain.BlacklistEntry{
			{ID: uuid.New(), TeamID: snap.Team.ID, Type: domain.BlacklistTypeCountry, Value: "US"},
			{ID: uuid.New(), TeamID: snap.Team.ID, Type: domain.BlacklistTypeIPAddress, Value: "198.51.100.7"},
		}
		env := newTestEnv(snap)

		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeIPBlacklisted, result.Outcome)
	})

	t.Run("country hit", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Team.Blacklist = []domain.BlacklistEntry{
			{ID: uuid.New(), TeamID: snap.Team.ID, Type: domain.BlacklistTypeCountry, Value: "US"},
		}
		env := newTestEnv(snap)

		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeCountryBlacklisted, result.Outcome)
	})

	t.Run("country check skipped when geolocation fails", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Team.Blacklist = []domain.BlacklistEntry{
			{ID: uuid.New(), TeamID: snap.Team.ID, Type: domain.BlacklistTypeCountry, Value: "US"},
		}
		env := newTestEnv(snap)
		env.geo.country = ""
		env.geo.err = errors.New("geoip unavailable")

		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
	})

	t.Run("device identifier hit", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Team.Blacklist = []domain.BlacklistEntry{
			{ID: uuid.New(), TeamID: snap.Team.ID, Type: domain.BlacklistTypeDeviceIdentifier, Value: "machine-1"},
		}
		env := newTestEnv(snap)

		req := baseRequest(snap)
		req.DeviceIdentifier = "machine-1"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeDeviceIdentifierBlacklisted, result.Outcome)
	})
}

func TestVerifySuspended(t *testing.T) {
	snap := baseSnapshot()
	snap.License.Suspended = true
	env := newTestEnv(snap)

	result := env.svc.Verify(context.Background(), baseRequest(snap))
	require.Equal(t, OutcomeLicenseSuspended, result.Outcome)

	// 黑名单命中优先于暂停状态
	snap.Team.Blacklist = []domain.BlacklistEntry{
		{ID: uuid.New(), TeamID: snap.Team.ID, Type: domain.BlacklistTypeIPAddress, Value: "198.51.100.7"},
	}
	result = env.svc.Verify(context.Background(), baseRequest(snap))
	require.Equal(t, OutcomeIPBlacklisted, result.Outcome)
}

func TestVerifyCustomerAxis(t *testing.T) {
	customerID := uuid.New()

	setup := func(strict bool) *repository.VerificationSnapshot {
		snap := baseSnapshot()
		snap.Team.Settings.StrictCustomers = strict
		snap.License.Customers = []domain.Customer{
			{ID: customerID, TeamID: snap.Team.ID, Name: "Acme"},
		}
		return snap
	}

	t.Run("strict requires identifier", func(t *testing.T) {
		snap := setup(true)
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeCustomerNotFound, result.Outcome)
	})

	t.Run("lenient passes without identifier", func(t *testing.T) {
		snap := setup(false)
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
	})

	t.Run("supplied identifier must match even in lenient mode", func(t *testing.T) {
		snap := setup(false)
		env := newTestEnv(snap)
		req := baseRequest(snap)
		other := uuid.New()
		req.CustomerID = &other
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeCustomerNotFound, result.Outcome)
	})

	t.Run("matching identifier recorded", func(t *testing.T) {
		snap := setup(true)
		env := newTestEnv(snap)
		req := baseRequest(snap)
		id := customerID
		req.CustomerID = &id
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeValid, result.Outcome)

		entry := env.recorder.last()
		require.NotNil(t, entry.CustomerID)
		require.Equal(t, customerID, *entry.CustomerID)
	})

	t.Run("axis inactive when license has no customers", func(t *testing.T) {
		snap := baseSnapshot()
		snap.Team.Settings.StrictCustomers = true
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
	})
}

func TestVerifyProductAndReleaseAxes(t *testing.T) {
	productID := uuid.New()

	setup := func(strictProducts, strictReleases bool, releases []domain.Release) *repository.VerificationSnapshot {
		snap := baseSnapshot()
		snap.Team.Settings.StrictProducts = strictProducts
		snap.Team.Settings.StrictReleases = strictReleases
		snap.License.Products = []domain.Product{
			{ID: productID, TeamID: snap.Team.ID, Name: "Editor", Releases: releases},
		}
		return snap
	}

	published := []domain.Release{
		{ID: uuid.New(), ProductID: productID, Version: "1.2.3", Status: domain.ReleaseStatusPublished},
		{ID: uuid.New(), ProductID: productID, Version: "2.0.0", Status: domain.ReleaseStatusPublished},
	}

	t.Run("strict products requires identifier", func(t *testing.T) {
		snap := setup(true, false, nil)
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeProductNotFound, result.Outcome)
	})

	t.Run("lenient products passes without identifier", func(t *testing.T) {
		snap := setup(false, false, nil)
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
	})

	t.Run("unknown product rejected", func(t *testing.T) {
		snap := setup(false, false, nil)
		env := newTestEnv(snap)
		req := baseRequest(snap)
		other := uuid.New()
		req.ProductID = &other
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeProductNotFound, result.Outcome)
	})

	t.Run("version matched against published releases", func(t *testing.T) {
		snap := setup(false, false, published)
		env := newTestEnv(snap)
		req := baseRequest(snap)
		id := productID
		req.ProductID = &id
		req.Version = "1.2.3"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeValid, result.Outcome)

		entry := env.recorder.last()
		require.NotNil(t, entry.ProductID)
		require.NotNil(t, entry.ReleaseID)
		require.Equal(t, published[0].ID, *entry.ReleaseID)
	})

	t.Run("unknown version rejected", func(t *testing.T) {
		snap := setup(false, false, published)
		env := newTestEnv(snap)
		req := baseRequest(snap)
		id := productID
		req.ProductID = &id
		req.Version = "9.9.9"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeReleaseNotFound, result.Outcome)
	})

	t.Run("strict releases requires version", func(t *testing.T) {
		snap := setup(false, true, published)
		env := newTestEnv(snap)
		req := baseRequest(snap)
		id := productID
		req.ProductID = &id
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeReleaseNotFound, result.Outcome)
	})

	t.Run("draft releases do not activate version axis", func(t *testing.T) {
		drafts := []domain.Release{
			{ID: uuid.New(), ProductID: productID, Version: "1.0.0", Status: domain.ReleaseStatusDraft},
		}
		snap := setup(false, true, drafts)
		env := newTestEnv(snap)
		req := baseRequest(snap)
		id := productID
		req.ProductID = &id
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeValid, result.Outcome)
	})
}

func TestVerifyExpiration(t *testing.T) {
	t.Run("date in the past rejected", func(t *testing.T) {
		snap := baseSnapshot()
		snap.License.ExpirationType = domain.ExpirationTypeDate
		snap.License.ExpirationDate = timePtr(time.Now().UTC().Add(-time.Hour))
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeLicenseExpired, result.Outcome)
	})

	t.Run("date in the future passes", func(t *testing.T) {
		snap := baseSnapshot()
		snap.License.ExpirationType = domain.ExpirationTypeDate
		snap.License.ExpirationDate = timePtr(time.Now().UTC().Add(time.Hour))
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
	})

	t.Run("date type without stored date fails closed", func(t *testing.T) {
		// DATE许可证丢失日期属于数据损坏，不能当作永久有效放行
		snap := baseSnapshot()
		snap.License.ExpirationType = domain.ExpirationTypeDate
		snap.License.ExpirationDate = nil
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeInternalError, result.Outcome)
	})

	t.Run("duration activates on first verification", func(t *testing.T) {
		snap := baseSnapshot()
		snap.License.ExpirationType = domain.ExpirationTypeDuration
		snap.License.ExpirationDays = intPtr(30)
		env := newTestEnv(snap)

		before := time.Now().UTC()
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
		require.Equal(t, 1, env.licenses.activationCount())

		activated := env.licenses.activations[0]
		require.WithinDuration(t, before.Add(30*24*time.Hour), activated, 5*time.Second)

		// 已激活后再次验证不再写入
		result = env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
		require.Equal(t, 1, env.licenses.activationCount())
	})

	t.Run("duration expired after activation window", func(t *testing.T) {
		snap := baseSnapshot()
		snap.License.ExpirationType = domain.ExpirationTypeDuration
		snap.License.ExpirationDays = intPtr(30)
		snap.License.ExpirationDate = timePtr(time.Now().UTC().Add(-time.Minute))
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeLicenseExpired, result.Outcome)
	})

	t.Run("activation write failure fails closed", func(t *testing.T) {
		snap := baseSnapshot()
		snap.License.ExpirationType = domain.ExpirationTypeDuration
		snap.License.ExpirationDays = intPtr(30)
		env := newTestEnv(snap)
		env.licenses.err = errors.New("write failed")
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeInternalError, result.Outcome)
	})

	t.Run("unknown expiration type fails closed", func(t *testing.T) {
		snap := baseSnapshot()
		snap.License.ExpirationType = domain.ExpirationType("bogus")
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeInternalError, result.Outcome)
	})
}

func TestVerifyIPLimit(t *testing.T) {
	setup := func() *repository.VerificationSnapshot {
		snap := baseSnapshot()
		snap.License.IPLimit = intPtr(2)
		snap.WindowIPs = []string{"203.0.113.1", "203.0.113.2"}
		return snap
	}

	t.Run("new ip beyond limit rejected", func(t *testing.T) {
		snap := setup()
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeIPLimitReached, result.Outcome)
	})

	t.Run("returning ip always allowed", func(t *testing.T) {
		snap := setup()
		env := newTestEnv(snap)
		req := baseRequest(snap)
		req.IPAddress = "203.0.113.2"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeValid, result.Outcome)
	})

	t.Run("limiter inactive when unset", func(t *testing.T) {
		snap := setup()
		snap.License.IPLimit = nil
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
	})
}

func TestVerifySeats(t *testing.T) {
	now := time.Now().UTC()

	setup := func() *repository.VerificationSnapshot {
		snap := baseSnapshot()
		snap.License.Seats = intPtr(1)
		snap.Heartbeats = []domain.Heartbeat{
			{
				ID:               uuid.New(),
				LicenseID:        snap.License.ID,
				DeviceIdentifier: "machine-1",
				LastBeatAt:       now.Add(-time.Minute),
			},
		}
		return snap
	}

	t.Run("second device rejected", func(t *testing.T) {
		snap := setup()
		env := newTestEnv(snap)
		req := baseRequest(snap)
		req.DeviceIdentifier = "machine-2"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeMaximumConcurrentSeats, result.Outcome)
		require.Empty(t, env.heartbeats.upserts)
	})

	t.Run("same device re-verifies and refreshes heartbeat", func(t *testing.T) {
		snap := setup()
		env := newTestEnv(snap)
		req := baseRequest(snap)
		req.DeviceIdentifier = "machine-1"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeValid, result.Outcome)
		require.Len(t, env.heartbeats.upserts, 1)
		require.Equal(t, "machine-1", env.heartbeats.upserts[0].DeviceIdentifier)
		require.Equal(t, snap.License.ID, env.heartbeats.upserts[0].LicenseID)
	})

	t.Run("stale heartbeat frees the seat", func(t *testing.T) {
		snap := setup()
		snap.Heartbeats[0].LastBeatAt = now.Add(-time.Hour)
		env := newTestEnv(snap)
		req := baseRequest(snap)
		req.DeviceIdentifier = "machine-2"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeValid, result.Outcome)
	})

	t.Run("limiter inactive without device identifier", func(t *testing.T) {
		snap := setup()
		env := newTestEnv(snap)
		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
		require.Empty(t, env.heartbeats.upserts)
	})

	t.Run("heartbeat write failure fails closed", func(t *testing.T) {
		snap := setup()
		env := newTestEnv(snap)
		env.heartbeats.err = errors.New("write failed")
		req := baseRequest(snap)
		req.DeviceIdentifier = "machine-1"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeInternalError, result.Outcome)
	})
}

func TestVerifyWritesSurviveClientDisconnect(t *testing.T) {
	// 请求上下文被取消（客户端断开）时，已开始的写入不得被丢弃
	snap := baseSnapshot()
	snap.License.ExpirationType = domain.ExpirationTypeDuration
	snap.License.ExpirationDays = intPtr(30)
	env := newTestEnv(snap)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := baseRequest(snap)
	req.DeviceIdentifier = "machine-1"
	result := env.svc.Verify(ctx, req)

	require.Equal(t, OutcomeValid, result.Outcome)
	require.Equal(t, 1, env.licenses.activationCount())
	require.Len(t, env.heartbeats.upserts, 1)
}

func TestVerifyChallenge(t *testing.T) {
	withKeyPair := func(t *testing.T, snap *repository.VerificationSnapshot) *crypto.KeyPair {
		t.Helper()
		kp, err := crypto.GenerateKeyPair()
		require.NoError(t, err)
		box := crypto.NewSecretBox(&testStorageKey)
		enc, err := box.Seal(kp.PrivateKey)
		require.NoError(t, err)
		snap.Team.KeyPair = &domain.TeamKeyPair{
			TeamID:        snap.Team.ID,
			PublicKey:     kp.PublicKeyBase64(),
			PrivateKeyEnc: enc,
		}
		return kp
	}

	t.Run("challenge signed on success", func(t *testing.T) {
		snap := baseSnapshot()
		kp := withKeyPair(t, snap)
		env := newTestEnv(snap)

		req := baseRequest(snap)
		req.Challenge = "abc123"
		result := env.svc.Verify(context.Background(), req)

		require.Equal(t, OutcomeValid, result.Outcome)
		require.NotEmpty(t, result.ChallengeResponse)
		require.True(t, kp.VerifyChallenge("abc123", result.ChallengeResponse))
	})

	t.Run("no challenge no signature", func(t *testing.T) {
		snap := baseSnapshot()
		withKeyPair(t, snap)
		env := newTestEnv(snap)

		result := env.svc.Verify(context.Background(), baseRequest(snap))
		require.Equal(t, OutcomeValid, result.Outcome)
		require.Empty(t, result.ChallengeResponse)
	})

	t.Run("rejection carries no signature", func(t *testing.T) {
		snap := baseSnapshot()
		withKeyPair(t, snap)
		snap.License.Suspended = true
		env := newTestEnv(snap)

		req := baseRequest(snap)
		req.Challenge = "abc123"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeLicenseSuspended, result.Outcome)
		require.Empty(t, result.ChallengeResponse)
	})

	t.Run("missing key pair fails closed", func(t *testing.T) {
		snap := baseSnapshot()
		env := newTestEnv(snap)

		req := baseRequest(snap)
		req.Challenge = "abc123"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeInternalError, result.Outcome)
		require.Empty(t, result.ChallengeResponse)
	})

	t.Run("corrupted private key fails closed", func(t *testing.T) {
		snap := baseSnapshot()
		withKeyPair(t, snap)
		snap.Team.KeyPair.PrivateKeyEnc[30] ^= 0xff
		env := newTestEnv(snap)

		req := baseRequest(snap)
		req.Challenge = "abc123"
		result := env.svc.Verify(context.Background(), req)
		require.Equal(t, OutcomeInternalError, result.Outcome)
	})
}
