package service

import (
	"time"

	"github.com/keyward/backend/internal/domain"
	"github.com/keyward/backend/internal/repository"
)

// evaluation 单次验证的评估上下文
// 各策略检查是快照上的纯函数，按固定顺序执行，后面的检查假定前面的已通过
type evaluation struct {
	req     *VerifyRequest
	snap    *repository.VerificationSnapshot
	now     time.Time
	country string // 空串表示国家未知

	// 实际匹配到的关联实体，仅在匹配成功时记入请求日志
	matchedCustomer *domain.Customer
	matchedProduct  *domain.Product
	matchedRelease  *domain.Release
}

// settings 团队设置，缺失时退回默认值
func (e *evaluation) settings() *domain.TeamSettings {
	if e.snap.Team != nil && e.snap.Team.Settings != nil {
		return e.snap.Team.Settings
	}
	return &domain.TeamSettings{
		IPLimitPeriod:        domain.IPLimitPeriodDay,
		DeviceTimeoutMinutes: 10,
	}
}

// checkBlacklist 黑名单过滤，固定顺序：IP → 国家 → 设备标识
// 首个命中即终止；国家未知时跳过国家检查
func (e *evaluation) checkBlacklist() (Outcome, *domain.BlacklistEntry) {
	if entry := e.findBlacklistEntry(domain.BlacklistTypeIPAddress, e.req.IPAddress); entry != nil {
		return OutcomeIPBlacklisted, entry
	}

	if e.country != "" {
		if entry := e.findBlacklistEntry(domain.BlacklistTypeCountry, e.country); entry != nil {
			return OutcomeCountryBlacklisted, entry
		}
	}

	if e.req.DeviceIdentifier != "" {
		if entry := e.findBlacklistEntry(domain.BlacklistTypeDeviceIdentifier, e.req.DeviceIdentifier); entry != nil {
			return OutcomeDeviceIdentifierBlacklisted, entry
		}
	}

	return "", nil
}

func (e *evaluation) findBlacklistEntry(t domain.BlacklistType, value string) *domain.BlacklistEntry {
	if value == "" {
		return nil
	}
	for i := range e.snap.Team.Blacklist {
		entry := &e.snap.Team.Blacklist[i]
		if entry.Type == t && entry.Value == value {
			return entry
		}
	}
	return nil
}

// checkSuspended 暂停状态检查
func (e *evaluation) checkSuspended() Outcome {
	if e.snap.License.Suspended {
		return OutcomeLicenseSuspended
	}
	return ""
}

// checkEntitlements 关联实体匹配，三条轴相互独立
// 一条轴只在许可证确实绑定了实体时才生效；严格模式额外要求标识符必须随请求提供
func (e *evaluation) checkEntitlements() Outcome {
	settings := e.settings()
	license := e.snap.License

	// 客户轴
	if license.HasCustomers() {
		if e.req.CustomerID == nil {
			if settings.StrictCustomers {
				return OutcomeCustomerNotFound
			}
		} else {
			matched := false
			for i := range license.Customers {
				if license.Customers[i].ID == *e.req.CustomerID {
					e.matchedCustomer = &license.Customers[i]
					matched = true
					break
				}
			}
			if !matched {
				return OutcomeCustomerNotFound
			}
		}
	}

	// 产品轴
	if license.HasProducts() {
		if e.req.ProductID == nil {
			if settings.StrictProducts {
				return OutcomeProductNotFound
			}
		} else {
			matched := false
			for i := range license.Products {
				if license.Products[i].ID == *e.req.ProductID {
					e.matchedProduct = &license.Products[i]
					matched = true
					break
				}
			}
			if !matched {
				return OutcomeProductNotFound
			}
		}
	}

	// 版本轴：只针对已匹配产品的已发布版本
	if e.matchedProduct != nil {
		published := e.matchedProduct.PublishedReleases()
		if len(published) > 0 {
			if e.req.Version == "" {
				if settings.StrictReleases {
					return OutcomeReleaseNotFound
				}
			} else {
				matched := false
				for i := range published {
					if published[i].Version == e.req.Version {
						e.matchedRelease = &published[i]
						matched = true
						break
					}
				}
				if !matched {
					return OutcomeReleaseNotFound
				}
			}
		}
	}

	return ""
}

// checkExpiration 过期状态机
// DURATION未激活时返回本次应写入的激活时间，该次调用视为有效（计时从现在开始）
func (e *evaluation) checkExpiration() (Outcome, *time.Time) {
	license := e.snap.License

	switch license.ExpirationType {
	case domain.ExpirationTypeNever:
		return "", nil

	case domain.ExpirationTypeDate:
		// DATE类型必须带日期，缺失是数据损坏，按失败关闭处理
		if license.ExpirationDate == nil {
			return OutcomeInternalError, nil
		}
		if e.now.After(*license.ExpirationDate) {
			return OutcomeLicenseExpired, nil
		}
		return "", nil

	case domain.ExpirationTypeDuration:
		if license.ExpirationDate == nil {
			days := 0
			if license.ExpirationDays != nil {
				days = *license.ExpirationDays
			}
			expiresAt := e.now.Add(time.Duration(days) * 24 * time.Hour)
			return "", &expiresAt
		}
		if e.now.After(*license.ExpirationDate) {
			return OutcomeLicenseExpired, nil
		}
		return "", nil

	default:
		// 未识别的过期类型按失败关闭处理
		return OutcomeInternalError, nil
	}
}

// checkIPLimit 滚动窗口去重IP限制
// 限制的是去重IP数而非请求数：窗口内出现过的IP总是放行
func (e *evaluation) checkIPLimit() Outcome {
	license := e.snap.License
	if license.IPLimit == nil {
		return ""
	}

	for _, ip := range e.snap.WindowIPs {
		if ip == e.req.IPAddress {
			return ""
		}
	}

	if len(e.snap.WindowIPs) >= *license.IPLimit {
		return OutcomeIPLimitReached
	}
	return ""
}

// checkSeats 并发席位限制
// 活跃设备 = 心跳在超时窗口内的设备；已占席位的设备重复验证总是放行
func (e *evaluation) checkSeats() Outcome {
	license := e.snap.License
	if e.req.DeviceIdentifier == "" || license.Seats == nil {
		return ""
	}

	timeout := e.settings().DeviceTimeout()
	activeCount := 0
	ownSeat := false
	for i := range e.snap.Heartbeats {
		hb := &e.snap.Heartbeats[i]
		if !hb.ActiveAt(e.now, timeout) {
			continue
		}
		activeCount++
		if hb.DeviceIdentifier == e.req.DeviceIdentifier {
			ownSeat = true
		}
	}

	if !ownSeat && activeCount >= *license.Seats {
		return OutcomeMaximumConcurrentSeats
	}
	return ""
}
