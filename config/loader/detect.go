package loader

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"
)

var (
	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	// [section], [a.b-c], [[array.of.tables]]
	tomlHeaderRe = regexp.MustCompile(`^\[\[?\s*[A-Za-z_][A-Za-z0-9_.\- ]*\]\]?\s*(#.*)?$`)

	assignmentRe = regexp.MustCompile(`^(export\s+)?[A-Za-z_][A-Za-z0-9_.\-]*\s*=`)

	// KEY=value with no spaces around '=' and at least one upper-case letter.
	envLineRe = regexp.MustCompile(`^(export\s+)?[A-Za-z_][A-Za-z0-9_]*=`)

	yamlLineRe = regexp.MustCompile(`^(-\s+|-$|[^\s:#][^:]*:(\s|$))`)
)

// DetectFormat returns the format for a file. A recognized extension wins;
// otherwise the content is sniffed.
func DetectFormat(path string, raw []byte) Format {
	if f := FormatForPath(path); f != FormatUnknown {
		return f
	}
	return Sniff(raw)
}

// Sniff classifies raw content without a file name. Checks run in order:
//
//  1. a leading '{' is JSON
//  2. a leading '[' is JSON unless the first line is a TOML table header
//  3. a leading "---" or "%YAML" is YAML
//  4. any TOML table header is TOML
//  5. assignment lines that are all KEY=value shaped are env-style
//  6. any other assignment line is TOML
//  7. any "key: value" or "- item" line is YAML
//
// Anything else is reported as JSON so that the parser fails explicitly.
func Sniff(raw []byte) Format {
	f, _ := SniffReader(bytes.NewReader(raw))
	return f
}

// SniffReader applies the Sniff rules to a stream. It stops reading as soon
// as a rule decides, so only content that is ambiguous up to its end is read
// in full. Lines longer than 1 MiB end the scan without an error.
func SniffReader(r io.Reader) (Format, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	var (
		first       = true
		assignments int
		envLines    int
		yamlLines   int
	)
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			switch {
			case line[0] == '{':
				return FormatJSON, nil
			case line[0] == '[':
				if tomlHeaderRe.MatchString(line) {
					return FormatTOML, nil
				}
				return FormatJSON, nil
			case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "%YAML"):
				return FormatYAML, nil
			}
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if tomlHeaderRe.MatchString(line) {
			return FormatTOML, nil
		}
		if assignmentRe.MatchString(line) {
			assignments++
			if envLineRe.MatchString(line) && hasUpperKey(line) {
				envLines++
			}
			continue
		}
		if yamlLineRe.MatchString(line) {
			yamlLines++
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		return FormatUnknown, err
	}

	switch {
	case assignments > 0 && envLines == assignments:
		return FormatEnv, nil
	case assignments > 0:
		return FormatTOML, nil
	case yamlLines > 0:
		return FormatYAML, nil
	default:
		return FormatJSON, nil
	}
}

func hasUpperKey(line string) bool {
	line = strings.TrimPrefix(line, "export ")
	key, _, _ := strings.Cut(line, "=")
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
