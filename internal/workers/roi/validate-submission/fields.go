// internal/workers/roi/validate-submission/fields.go
package validatesubmission

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"lead-capture/internal/models"
)

var errMissing = errors.New("missing")

// present reports whether raw carries a usable value. Absent keys, JSON null and
// blank strings all count as missing.
func present(raw map[string]interface{}, field string) bool {
	v, ok := raw[field]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

// numberText returns the textual form of a numeric input, used both for parsing
// and for counting decimal places.
func numberText(v interface{}) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return n.String(), true
	case string:
		return strings.TrimSpace(n), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	default:
		return "", false
	}
}

func parseNumber(v interface{}, label string, allowZero bool, max float64) (float64, error) {
	text, ok := numberText(v)
	if !ok {
		return 0, fmt.Errorf("%s must be a valid number", label)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be a valid number", label)
	}
	if allowZero && f < 0 {
		return 0, fmt.Errorf("%s must be zero or positive", label)
	}
	if !allowZero && f <= 0 {
		return 0, fmt.Errorf("%s must be positive", label)
	}
	if f > max {
		return 0, tooLarge(label, max)
	}
	return f, nil
}

func parseInteger(v interface{}, label string, max int) (int, error) {
	text, ok := numberText(v)
	if !ok {
		return 0, fmt.Errorf("%s must be a valid integer", label)
	}

	var f float64
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		f = float64(i)
	} else {
		// JSON numbers such as 25.0 are accepted when integral.
		parsed, ferr := strconv.ParseFloat(text, 64)
		if _, isString := v.(string); isString || ferr != nil || math.IsInf(parsed, 0) || parsed != math.Trunc(parsed) {
			return 0, fmt.Errorf("%s must be a valid integer", label)
		}
		f = parsed
	}

	if f <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", label)
	}
	if f > float64(max) {
		return 0, tooLarge(label, float64(max))
	}
	return int(f), nil
}

func tooLarge(label string, max float64) error {
	return fmt.Errorf("%s cannot exceed %s", label, strconv.FormatFloat(max, 'f', -1, 64))
}

func parsePercentage(v interface{}, label string) (float64, error) {
	text, ok := numberText(v)
	if !ok {
		return 0, fmt.Errorf("%s must be a valid number", label)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be a valid number", label)
	}
	if f < 0 || f > 100 {
		return 0, fmt.Errorf("%s must be between 0 and 100", label)
	}
	if decimalPlaces(text, f) > 2 {
		return 0, fmt.Errorf("%s can have at most 2 decimal places", label)
	}
	return f, nil
}

// decimalPlaces counts significant digits after the point. Exponent notation is
// normalised through the parsed value first.
func decimalPlaces(text string, f float64) int {
	if strings.ContainsAny(text, "eE") {
		text = strconv.FormatFloat(f, 'f', -1, 64)
	}
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		return 0
	}
	return len(strings.TrimRight(text[dot+1:], "0"))
}

func stringValue(v interface{}, label string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be text", label)
	}
	return strings.TrimSpace(s), nil
}

func validateName(raw map[string]interface{}, field, label string) (string, error) {
	if !present(raw, field) {
		return "", fmt.Errorf("%s is required", label)
	}
	name, err := stringValue(raw[field], label)
	if err != nil {
		return "", err
	}
	switch n := len([]rune(name)); {
	case n < 2:
		return "", fmt.Errorf("%s must be at least 2 characters", label)
	case n > 50:
		return "", fmt.Errorf("%s must be 50 characters or fewer", label)
	}
	if !nameRegex.MatchString(name) {
		return "", fmt.Errorf("%s can only contain letters, spaces, hyphens, and apostrophes", label)
	}
	return name, nil
}

func validateEmail(raw map[string]interface{}) (string, error) {
	if !present(raw, FieldEmail) {
		return "", errors.New("Email is required")
	}
	email, err := stringValue(raw[FieldEmail], "Email")
	if err != nil {
		return "", err
	}
	return NormalizeEmail(email)
}

// NormalizeEmail trims and lower-cases email and checks its shape. It is shared
// with the data subject request endpoints.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("Email is required")
	}
	if len(email) > maxEmailLength {
		return "", errors.New("Email address too long")
	}
	if !emailRegex.MatchString(email) {
		return "", errors.New("Invalid email format")
	}
	return email, nil
}

// normalizeWebsite assumes https when no scheme is given and rebuilds the URL as
// scheme://host/path[?query][#fragment].
func normalizeWebsite(v interface{}) (string, error) {
	website, err := stringValue(v, "Website")
	if err != nil {
		return "", err
	}
	if website == "" {
		return "", errMissing
	}
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		website = "https://" + website
	}

	u, err := url.Parse(website)
	if err != nil {
		return "", errors.New("Invalid website URL format")
	}
	if u.Host == "" {
		return "", errors.New("Invalid website URL")
	}
	if u.User != nil || !domainRegex.MatchString(u.Host) {
		return "", errors.New("Invalid domain name")
	}

	normalized := u.Scheme + "://" + u.Host + u.EscapedPath()
	if u.RawQuery != "" {
		normalized += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		normalized += "#" + u.EscapedFragment()
	}
	return normalized, nil
}

// validatePhone checks digit count after stripping separators and returns the
// trimmed original formatting.
func validatePhone(v interface{}) (string, error) {
	phone, err := stringValue(v, "Phone number")
	if err != nil {
		return "", err
	}
	if phone == "" {
		return "", errMissing
	}
	digits := phoneStrip.ReplaceAllString(phone, "")
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", errors.New("Phone number can only contain digits and formatting characters")
		}
	}
	if len(digits) < 7 || len(digits) > 15 {
		return "", errors.New("Phone number must be between 7 and 15 digits")
	}
	return phone, nil
}

// decodeChallenges accepts a list, a JSON-encoded list, or a single label, and
// returns the labels in order without duplicates.
func decodeChallenges(v interface{}) ([]models.Challenge, error) {
	var labels []string

	switch c := v.(type) {
	case nil:
		return []models.Challenge{}, nil
	case []interface{}:
		for _, item := range c {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("Challenges must be a list of text labels")
			}
			labels = append(labels, s)
		}
	case []string:
		labels = c
	case string:
		trimmed := strings.TrimSpace(c)
		switch {
		case trimmed == "":
			return []models.Challenge{}, nil
		case strings.HasPrefix(trimmed, "["):
			if err := json.Unmarshal([]byte(trimmed), &labels); err != nil {
				return nil, errors.New("Challenges must be a list")
			}
		default:
			labels = []string{trimmed}
		}
	default:
		return nil, errors.New("Challenges must be a list")
	}

	out := make([]models.Challenge, 0, len(labels))
	seen := make(map[models.Challenge]bool, len(labels))
	for _, label := range labels {
		ch := models.Challenge(strings.TrimSpace(label))
		if !validChallenges[ch] {
			return nil, fmt.Errorf("Invalid challenge: %s", label)
		}
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	return out, nil
}

func parseBool(v interface{}, label string) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%s must be true or false", label)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%s must be true or false", label)
	}
}
