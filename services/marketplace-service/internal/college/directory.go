package college

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

//go:embed colleges.json
var defaultDirectory []byte

const (
	ReasonInvalidFormat     = "Invalid email format"
	ReasonUnsupportedDomain = "Please use your college email address"
)

// Result is the outcome of checking an email against the allow-list.
type Result struct {
	Valid       bool
	Email       string
	Domain      string
	Institution string
	Reason      string
}

// Directory is the allow-list of college email domains and the institutions
// they belong to. It is immutable once loaded.
type Directory struct {
	domains      []string
	institutions map[string]string
}

type directoryFile struct {
	Domains      []string          `json:"domains"`
	Institutions map[string]string `json:"institutions"`
}

// Load reads the allow-list from path, or the built-in list when path is empty.
func Load(path string) (*Directory, error) {
	raw := defaultDirectory
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read college domains file: %w", err)
		}
		raw = data
	}

	return Parse(raw)
}

// Parse builds a Directory from its JSON document.
func Parse(raw []byte) (*Directory, error) {
	var f directoryFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse college domains: %w", err)
	}

	return New(f.Domains, f.Institutions), nil
}

// New builds a Directory from explicit domains and an optional institution mapping.
// Mapped domains are allow-listed even when missing from domains.
func New(domains []string, institutions map[string]string) *Directory {
	d := &Directory{institutions: make(map[string]string, len(institutions))}

	seen := make(map[string]bool)
	add := func(domain string) {
		domain = normalizeDomain(domain)
		if domain == "" || seen[domain] {
			return
		}
		seen[domain] = true
		d.domains = append(d.domains, domain)
	}

	for _, domain := range domains {
		add(domain)
	}
	for domain, name := range institutions {
		add(domain)
		d.institutions[normalizeDomain(domain)] = name
	}

	// Longest first so the most specific entry wins a suffix match.
	sort.Slice(d.domains, func(i, j int) bool {
		if len(d.domains[i]) != len(d.domains[j]) {
			return len(d.domains[i]) > len(d.domains[j])
		}
		return d.domains[i] < d.domains[j]
	})

	return d
}

// Len returns the number of allow-listed domains.
func (d *Directory) Len() int {
	return len(d.domains)
}

// ValidateCollegeEmail checks email against the allow-list. It fails closed: anything
// that is not a well-formed address on an allow-listed domain is invalid.
func (d *Directory) ValidateCollegeEmail(email string) Result {
	email = strings.ToLower(strings.TrimSpace(email))

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") || !strings.Contains(domain, ".") {
		return Result{Email: email, Reason: ReasonInvalidFormat}
	}

	matched, ok := d.match(domain)
	if !ok {
		return Result{Email: email, Domain: domain, Reason: ReasonUnsupportedDomain}
	}

	return Result{
		Valid:       true,
		Email:       email,
		Domain:      domain,
		Institution: d.institutionFor(matched, domain),
	}
}

func (d *Directory) match(domain string) (string, bool) {
	for _, allowed := range d.domains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return allowed, true
		}
	}
	return "", false
}

// institutionFor prefers the mapping of the matched allow-list entry and otherwise
// derives a name from the first label of the address's own domain.
func (d *Directory) institutionFor(matched, domain string) string {
	if name, ok := d.institutions[matched]; ok && name != "" {
		return name
	}

	label, _, _ := strings.Cut(domain, ".")
	return strings.ToUpper(label)
}

func normalizeDomain(domain string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".@")
}
