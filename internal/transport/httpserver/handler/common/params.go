package common

import (
	"fmt"
	"strconv"
	"strings"
)

func parseIntParam(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid int")
	}
	return parsed, nil
}

func parseInt64Param(value string, fallback int64) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid int64")
	}
	return parsed, nil
}

func ParseIntParam(value string, fallback int) (int, error) {
	return parseIntParam(value, fallback)
}

func ParseInt64Param(value string, fallback int64) (int64, error) {
	return parseInt64Param(value, fallback)
}
