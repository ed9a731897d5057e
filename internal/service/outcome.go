package service

import "net/http"

// Outcome 验证结果码
// 每个拒绝原因都有独立的结果码，绝不坍缩成笼统的"invalid"
type Outcome string

const (
	OutcomeValid Outcome = "VALID"

	OutcomeBadRequest Outcome = "BAD_REQUEST"
	OutcomeRateLimit  Outcome = "RATE_LIMIT"

	OutcomeTeamNotFound    Outcome = "TEAM_NOT_FOUND"
	OutcomeLicenseNotFound Outcome = "LICENSE_NOT_FOUND"

	OutcomeIPBlacklisted               Outcome = "IP_BLACKLISTED"
	OutcomeCountryBlacklisted          Outcome = "COUNTRY_BLACKLISTED"
	OutcomeDeviceIdentifierBlacklisted Outcome = "DEVICE_IDENTIFIER_BLACKLISTED"

	OutcomeLicenseSuspended Outcome = "LICENSE_SUSPENDED"

	OutcomeCustomerNotFound Outcome = "CUSTOMER_NOT_FOUND"
	OutcomeProductNotFound  Outcome = "PRODUCT_NOT_FOUND"
	OutcomeReleaseNotFound  Outcome = "RELEASE_NOT_FOUND"

	OutcomeLicenseExpired Outcome = "LICENSE_EXPIRED"

	OutcomeIPLimitReached         Outcome = "IP_LIMIT_REACHED"
	OutcomeMaximumConcurrentSeats Outcome = "MAXIMUM_CONCURRENT_SEATS"

	OutcomeInternalError Outcome = "INTERNAL_ERROR"
)

// Valid 是否为通过结果
func (o Outcome) Valid() bool {
	return o == OutcomeValid
}

// HTTPStatus 结果码到传输层状态码的映射
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeValid:
		return http.StatusOK
	case OutcomeBadRequest:
		return http.StatusBadRequest
	case OutcomeRateLimit:
		return http.StatusTooManyRequests
	case OutcomeTeamNotFound, OutcomeLicenseNotFound,
		OutcomeCustomerNotFound, OutcomeProductNotFound, OutcomeReleaseNotFound:
		return http.StatusNotFound
	case OutcomeIPBlacklisted, OutcomeCountryBlacklisted, OutcomeDeviceIdentifierBlacklisted,
		OutcomeLicenseSuspended, OutcomeLicenseExpired,
		OutcomeIPLimitReached, OutcomeMaximumConcurrentSeats:
		return http.StatusForbidden
	default:
		// 未识别状态按失败关闭处理
		return http.StatusInternalServerError
	}
}

// Details 面向客户端的可读原因
func (o Outcome) Details() string {
	switch o {
	case OutcomeValid:
		return "License is valid"
	case OutcomeBadRequest:
		return "Bad request"
	case OutcomeRateLimit:
		return "Too many requests"
	case OutcomeTeamNotFound:
		return "Team not found"
	case OutcomeLicenseNotFound:
		return "License not found"
	case OutcomeIPBlacklisted:
		return "IP address is blacklisted"
	case OutcomeCountryBlacklisted:
		return "Country is blacklisted"
	case OutcomeDeviceIdentifierBlacklisted:
		return "Device identifier is blacklisted"
	case OutcomeLicenseSuspended:
		return "License is suspended"
	case OutcomeCustomerNotFound:
		return "Customer not found"
	case OutcomeProductNotFound:
		return "Product not found"
	case OutcomeReleaseNotFound:
		return "Release not found"
	case OutcomeLicenseExpired:
		return "License is expired"
	case OutcomeIPLimitReached:
		return "IP limit reached"
	case OutcomeMaximumConcurrentSeats:
		return "Maximum concurrent seats reached"
	default:
		return "Internal server error"
	}
}
