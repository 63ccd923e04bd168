// Package idhash derives deterministic identifiers from hashed inputs.
package idhash

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// DeviceIDLength is the length of a device identifier.
const DeviceIDLength = 16

// DeviceTraits are the client properties that make up a device fingerprint.
type DeviceTraits struct {
	UserAgent      string
	Language       string
	ScreenWidth    int
	ScreenHeight   int
	TimezoneOffset int // minutes, as reported by the client
	CanvasData     string
	HWConcurrency  int
	DeviceMemoryGB float64
}

// ComputeDeviceID computes a stable device identifier.
// Formula: SHA256(ua|lang|WxH|tz|canvas|cores|memory), first 16 hex chars.
func ComputeDeviceID(t DeviceTraits) string {
	data := fmt.Sprintf("%s|%s|%dx%d|%d|%s|%d|%s",
		t.UserAgent,
		t.Language,
		t.ScreenWidth,
		t.ScreenHeight,
		t.TimezoneOffset,
		t.CanvasData,
		t.HWConcurrency,
		formatMemory(t.DeviceMemoryGB),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:DeviceIDLength]
}

// FallbackDeviceID is used when the full trait set is unavailable.
// Formula: base64(ua|WxH|nowMillis), first 16 chars. It is not stable
// across calls with different timestamps.
func FallbackDeviceID(userAgent string, width, height int, nowMillis int64) string {
	data := fmt.Sprintf("%s|%dx%d|%d", userAgent, width, height, nowMillis)
	enc := base64.StdEncoding.EncodeToString([]byte(data))
	if len(enc) > DeviceIDLength {
		enc = enc[:DeviceIDLength]
	}
	return enc
}

// DeviceIDFromRequest derives a device identifier from request headers
// for clients that did not send one. Client hints stand in for the
// screen and hardware traits.
func DeviceIDFromRequest(r *http.Request) string {
	return ComputeDeviceID(DeviceTraits{
		UserAgent:  r.UserAgent(),
		Language:   primaryLanguage(r.Header.Get("Accept-Language")),
		CanvasData: r.Header.Get("Sec-CH-UA-Platform") + r.Header.Get("Sec-CH-UA-Model"),
	})
}

// IPFingerprint hashes the client IP so it can be stored alongside a
// trial record without keeping the raw address.
func IPFingerprint(r *http.Request) string {
	ip := ClientIP(r)
	if ip == "" {
		return ""
	}
	hash := sha256.Sum256([]byte("ip|" + ip))
	return hex.EncodeToString(hash[:])[:DeviceIDLength]
}

// ClientIP returns the first X-Forwarded-For hop or the remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func primaryLanguage(header string) string {
	lang, _, _ := strings.Cut(header, ",")
	lang, _, _ = strings.Cut(lang, ";")
	return strings.TrimSpace(lang)
}

// formatMemory renders like a JS number: 8 -> "8", 0.5 -> "0.5".
func formatMemory(gb float64) string {
	return strconv.FormatFloat(gb, 'f', -1, 64)
}
