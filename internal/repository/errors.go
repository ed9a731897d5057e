package repository

import "errors"

var (
	// ErrTeamNotFound 团队不存在
	ErrTeamNotFound = errors.New("team not found")
	// ErrLicenseNotFound 许可证不存在
	ErrLicenseNotFound = errors.New("license not found")
)
