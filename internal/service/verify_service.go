package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/keyward/backend/internal/crypto"
	"github.com/keyward/backend/internal/domain"
	"github.com/keyward/backend/internal/geoip"
	"github.com/keyward/backend/internal/repository"
	"go.uber.org/zap"
)

// Recorder 请求日志异步落盘接口
// 实现方不得阻塞验证路径，落盘失败也不影响本次判定结果
type Recorder interface {
	Record(entry *domain.RequestLog)
}

// VerifyRequest 单次验证请求
// IPAddress由传输层从连接信息填入，不接受客户端自报
type VerifyRequest struct {
	TeamID           uuid.UUID
	LicenseKey       string
	CustomerID       *uuid.UUID
	ProductID        *uuid.UUID
	Version          string
	DeviceIdentifier string
	Challenge        string
	IPAddress        string
}

// VerifyResult 单次验证的判定结果
type VerifyResult struct {
	Outcome           Outcome
	Timestamp         time.Time
	ChallengeResponse string
}

// VerifyService 许可证验证引擎
// 单一规范路径：所有验证请求都经过同一条固定顺序的检查流水线
type VerifyService struct {
	store      repository.VerificationStore
	licenses   repository.LicenseRepository
	blacklist  repository.BlacklistRepository
	heartbeats repository.HeartbeatRepository
	geo        geoip.Resolver
	hasher     *crypto.LicenseHasher
	secrets    *crypto.SecretBox
	recorder   Recorder
	logger     *zap.Logger
}

// NewVerifyService 创建验证引擎实例
func NewVerifyService(
	store repository.VerificationStore,
	licenses repository.LicenseRepository,
	blacklist repository.BlacklistRepository,
	heartbeats repository.HeartbeatRepository,
	geo geoip.Resolver,
	hasher *crypto.LicenseHasher,
	secrets *crypto.SecretBox,
	recorder Recorder,
	logger *zap.Logger,
) *VerifyService {
	return &VerifyService{
		store:      store,
		licenses:   licenses,
		blacklist:  blacklist,
		heartbeats: heartbeats,
		geo:        geo,
		hasher:     hasher,
		secrets:    secrets,
		recorder:   recorder,
		logger:     logger,
	}
}

// Verify 执行一次完整验证
// 拒绝原因永远返回首个失败检查的结果码，存储层故障按失败关闭处理
func (s *VerifyService) Verify(ctx context.Context, req *VerifyRequest) *VerifyResult {
	now := time.Now().UTC()

	// 1. 派生查询键，原始密钥从不进入存储层查询条件
	lookup := s.hasher.LookupKey(req.LicenseKey, req.TeamID)

	// 2. 一致性快照读取
	snap, err := s.store.Load(ctx, req.TeamID, lookup, now)
	if err != nil {
		var outcome Outcome
		switch {
		case errors.Is(err, repository.ErrTeamNotFound):
			outcome = OutcomeTeamNotFound
		case errors.Is(err, repository.ErrLicenseNotFound):
			outcome = OutcomeLicenseNotFound
		default:
			s.logger.Error("failed to load verification snapshot",
				zap.String("team_id", req.TeamID.String()),
				zap.Error(err))
			outcome = OutcomeInternalError
		}
		s.record(req, nil, lookup, outcome, now)
		return &VerifyResult{Outcome: outcome, Timestamp: now}
	}

	// 3. 解析国家，失败不致命
	ev := &evaluation{
		req:     req,
		snap:    snap,
		now:     now,
		country: s.resolveCountry(ctx, req.IPAddress),
	}

	// 4. 策略检查流水线 + 判定
	outcome, challengeResponse := s.evaluate(ctx, ev)

	// 5. 异步记录请求日志
	s.record(req, ev, lookup, outcome, now)

	return &VerifyResult{
		Outcome:           outcome,
		Timestamp:         now,
		ChallengeResponse: challengeResponse,
	}
}

// evaluate 按固定顺序执行策略检查并组装判定
func (s *VerifyService) evaluate(ctx context.Context, ev *evaluation) (Outcome, string) {
	// 黑名单
	if outcome, entry := ev.checkBlacklist(); outcome != "" {
		s.bumpBlacklistHits(ctx, entry)
		return outcome, ""
	}

	// 暂停状态
	if outcome := ev.checkSuspended(); outcome != "" {
		return outcome, ""
	}

	// 关联实体匹配
	if outcome := ev.checkEntitlements(); outcome != "" {
		return outcome, ""
	}

	// 过期状态机，DURATION首次验证时惰性激活
	outcome, activation := ev.checkExpiration()
	if outcome != "" {
		return outcome, ""
	}
	if activation != nil {
		// 脱离请求上下文写入，客户端断开不能丢弃已开始的激活
		if err := s.licenses.ActivateExpiration(context.WithoutCancel(ctx), ev.snap.License.ID, *activation); err != nil {
			s.logger.Error("failed to activate license expiration",
				zap.String("license_id", ev.snap.License.ID.String()),
				zap.Error(err))
			return OutcomeInternalError, ""
		}
	}

	// 用量限制
	if outcome := ev.checkIPLimit(); outcome != "" {
		return outcome, ""
	}
	if outcome := ev.checkSeats(); outcome != "" {
		return outcome, ""
	}

	// 席位台账必须反映本次准入，写入失败则不能放行
	// 同样脱离请求上下文，断开的客户端仍占用其席位
	if ev.req.DeviceIdentifier != "" {
		if err := s.touchHeartbeat(context.WithoutCancel(ctx), ev); err != nil {
			s.logger.Error("failed to record heartbeat",
				zap.String("license_id", ev.snap.License.ID.String()),
				zap.Error(err))
			return OutcomeInternalError, ""
		}
	}

	// 挑战签名只在全部检查通过后进行；签名能力缺失按失败关闭处理
	if ev.req.Challenge != "" {
		sig, err := s.signChallenge(ev)
		if err != nil {
			s.logger.Error("failed to sign challenge",
				zap.String("team_id", ev.snap.Team.ID.String()),
				zap.Error(err))
			return OutcomeInternalError, ""
		}
		return OutcomeValid, sig
	}

	return OutcomeValid, ""
}

// resolveCountry 解析请求IP的国家码，失败返回空串
func (s *VerifyService) resolveCountry(ctx context.Context, ip string) string {
	country, err := s.geo.Country(ctx, ip)
	if err != nil {
		s.logger.Warn("geoip resolution failed", zap.String("ip", ip), zap.Error(err))
		return ""
	}
	return country
}

// bumpBlacklistHits 异步原子递增命中计数
// 脱离请求上下文执行，客户端断开不影响计数落盘
func (s *VerifyService) bumpBlacklistHits(ctx context.Context, entry *domain.BlacklistEntry) {
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.blacklist.IncrementHits(detached, entry.ID); err != nil {
			s.logger.Warn("failed to increment blacklist hits",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err))
		}
	}()
}

// touchHeartbeat 原子刷新本设备的席位心跳
func (s *VerifyService) touchHeartbeat(ctx context.Context, ev *evaluation) error {
	hb := &domain.Heartbeat{
		LicenseID:        ev.snap.License.ID,
		DeviceIdentifier: ev.req.DeviceIdentifier,
		LastBeatAt:       ev.now,
		IPAddress:        ev.req.IPAddress,
	}
	if ev.country != "" {
		hb.Country = &ev.country
	}
	return s.heartbeats.Upsert(ctx, hb)
}

// signChallenge 解密团队私钥并签发挑战响应
func (s *VerifyService) signChallenge(ev *evaluation) (string, error) {
	kp := ev.snap.Team.KeyPair
	if kp == nil {
		return "", errors.New("team has no signing key pair")
	}

	raw, err := s.secrets.Open(kp.PrivateKeyEnc)
	if err != nil {
		return "", err
	}
	privateKey, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return "", err
	}

	pair := &crypto.KeyPair{PrivateKey: privateKey}
	return pair.SignChallenge(ev.req.Challenge), nil
}

// record 组装并异步落盘请求日志
// 关联实体ID只在实际匹配成功时记录
func (s *VerifyService) record(req *VerifyRequest, ev *evaluation, lookup string, outcome Outcome, now time.Time) {
	entry := &domain.RequestLog{
		TeamID:     req.TeamID,
		KeyLookup:  &lookup,
		IPAddress:  req.IPAddress,
		Outcome:    string(outcome),
		HTTPStatus: outcome.HTTPStatus(),
		CreatedAt:  now,
	}
	if req.DeviceIdentifier != "" {
		entry.DeviceIdentifier = &req.DeviceIdentifier
	}
	if ev != nil {
		if ev.country != "" {
			entry.Country = &ev.country
		}
		if ev.snap.License != nil {
			entry.LicenseID = &ev.snap.License.ID
		}
		if ev.matchedCustomer != nil {
			entry.CustomerID = &ev.matchedCustomer.ID
		}
		if ev.matchedProduct != nil {
			entry.ProductID = &ev.matchedProduct.ID
		}
		if ev.matchedRelease != nil {
			entry.ReleaseID = &ev.matchedRelease.ID
		}
	}
	s.recorder.Record(entry)
}
