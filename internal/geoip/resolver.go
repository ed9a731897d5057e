package geoip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/keyward/backend/internal/config"
)

// Resolver 地理位置解析协作方接口
// 返回空字符串表示国家未知；解析失败不致命，国家黑名单检查会被跳过
type Resolver interface {
	Country(ctx context.Context, ip string) (string, error)
}

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// HTTPResolver 基于HTTP协作方的解析器实现
// 协作方接口：GET {baseURL}?ip={ip} -> 纯文本ISO 3166-1 alpha-2国家码
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResolver 创建HTTP解析器
func NewHTTPResolver(cfg *config.GeoIPConfig) *HTTPResolver {
	return &HTTPResolver{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			// 有界超时，单个慢依赖不能拖住工作协程
			Timeout: cfg.Timeout,
		},
	}
}

// NewResolver 创建解析器（Fx兼容）
func NewResolver(cfg *config.Config) Resolver {
	return NewHTTPResolver(&cfg.GeoIP)
}

// Country 解析IP对应的国家码
func (r *HTTPResolver) Country(ctx context.Context, ip string) (string, error) {
	reqURL := fmt.Sprintf("%s?ip=%s", r.baseURL, url.QueryEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build geoip request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geoip lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoip lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", fmt.Errorf("failed to read geoip response: %w", err)
	}

	code := strings.ToUpper(strings.TrimSpace(string(body)))
	if !countryCodePattern.MatchString(code) {
		return "", fmt.Errorf("geoip returned invalid country code: %q", code)
	}

	return code, nil
}
