package policy

import (
	"fmt"
	"os"
	"regexp"

	"github.com/clustersweep-io/clustersweep/pkg/types"
	"gopkg.in/yaml.v3"
)

// RequiredLabel is one entry of the extra_labels policy list: a label that
// must be present on every cluster and, when Regex is given, must match it.
type RequiredLabel struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Regex       string `yaml:"regex"`

	// compiled is nil when no regex was given or the regex failed to
	// compile. An uncompilable label regex means "always valid", not a
	// load error.
	compiled *regexp.Regexp
}

// fileSchema mirrors the on-disk policy document.
type fileSchema struct {
	ProtectedClusterPatterns  []string        `yaml:"protected_cluster_patterns"`
	ExcludedNamespacePatterns []string        `yaml:"excluded_namespace_patterns"`
	ExtraLabels               []RequiredLabel `yaml:"extra_labels"`
}

// Policy is the immutable, loaded-once ruleset driving deletion decisions.
type Policy struct {
	protectedClusters  []*regexp.Regexp
	excludedNamespaces []*regexp.Regexp
	requiredLabels     []RequiredLabel
}

// Default returns an empty policy: nothing protected, no extra labels.
func Default() *Policy {
	return &Policy{}
}

// Load reads and compiles a policy document from a YAML file. Any error
// here is fatal to the caller: the process must not run with a partially
// loaded policy.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	pol, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy file %s: %w", path, err)
	}
	return pol, nil
}

// Parse compiles a policy from raw YAML. Protection patterns must compile;
// label validation patterns fail open.
func Parse(data []byte) (*Policy, error) {
	var schema fileSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse policy document: %w", err)
	}

	pol := &Policy{}

	for _, pat := range schema.ProtectedClusterPatterns {
		re, err := compilePrefix(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid protected_cluster_patterns entry %q: %w", pat, err)
		}
		pol.protectedClusters = append(pol.protectedClusters, re)
	}

	for _, pat := range schema.ExcludedNamespacePatterns {
		re, err := compilePrefix(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid excluded_namespace_patterns entry %q: %w", pat, err)
		}
		pol.excludedNamespaces = append(pol.excludedNamespaces, re)
	}

	for _, rl := range schema.ExtraLabels {
		if rl.Name == "" {
			return nil, fmt.Errorf("extra_labels entry is missing a name")
		}
		if rl.Regex != "" {
			// Fail open: a broken validation pattern accepts every value.
			rl.compiled, _ = compilePrefix(rl.Regex)
		}
		pol.requiredLabels = append(pol.requiredLabels, rl)
	}

	return pol, nil
}

// compilePrefix compiles a pattern with prefix-anchored match semantics:
// the pattern must match at the start of the subject but not necessarily
// consume all of it. A pattern like "prod" therefore also matches
// "production" -- policy authors who want an exact match must anchor with
// "$" themselves.
func compilePrefix(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}

// IsProtected reports whether configuration shields the cluster: its name
// matches a protected pattern or its namespace matches an excluded pattern.
func (p *Policy) IsProtected(clusterName, namespace string) bool {
	for _, re := range p.protectedClusters {
		if re.MatchString(clusterName) {
			return true
		}
	}
	for _, re := range p.excludedNamespaces {
		if re.MatchString(namespace) {
			return true
		}
	}
	return false
}

// ValidateLabels checks the extra_labels requirements in declaration order
// and returns the first failure as a decision reason, or nil when all
// labels pass.
func (p *Policy) ValidateLabels(labels map[string]string) *types.Reason {
	for _, rl := range p.requiredLabels {
		value, ok := labels[rl.Name]
		if !ok {
			return &types.Reason{Kind: types.ReasonMissingLabel, Label: rl.Name}
		}
		if rl.compiled != nil && !rl.compiled.MatchString(value) {
			return &types.Reason{
				Kind:    types.ReasonLabelMismatch,
				Label:   rl.Name,
				Value:   value,
				Pattern: rl.Regex,
			}
		}
	}
	return nil
}

// RequiredLabels returns the configured extra label requirements.
func (p *Policy) RequiredLabels() []RequiredLabel {
	return p.requiredLabels
}

const exampleConfig = `# clustersweep policy configuration.
#
# Patterns use prefix-anchored regular expression matching: "prod" matches
# both "prod" and "production". Anchor with "$" for exact matches.

# Cluster names that must never be deleted.
protected_cluster_patterns:
  - "^production-.*"
  - ".*-prod$"
  - "critical-.*"

# Namespaces that are never touched.
excluded_namespace_patterns:
  - "^default$"
  - ".*-prod$"

# Labels required on every cluster beyond the mandatory "expires" label.
# A missing label, or a value not matching the given regex, marks the
# cluster for deletion.
extra_labels:
  - name: owner
    description: Who is responsible for this cluster
  - name: ticket
    description: Tracking ticket that justifies the cluster's existence
    regex: "^[A-Z]+-[0-9]+$"
`

// WriteExample saves a commented example policy document.
func WriteExample(path string) error {
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}
	return nil
}
