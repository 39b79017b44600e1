package signatures

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/example/analysis-worker/internal/plugin"
)

// maxRuleFileSize is the largest rule file that will be parsed (1 MB).
const maxRuleFileSize = 1 << 20

// Skipped records a rule or file that was not registered.
type Skipped struct {
	File   string
	Rule   string
	Reason string
}

// LoadResult summarizes a LoadDir call.
type LoadResult struct {
	Loaded     []string
	Namespaces []string
	Skipped    []Skipped
}

// LoadDir parses every YAML rule file under dir and registers one signature
// per valid rule. Subdirectories become namespaces. Files and rules that
// cannot be used are skipped and reported rather than failing the load.
// Rules whose requires constraint does not accept workerVersion are skipped.
func LoadDir(reg *plugin.Registry, dir, workerVersion string) (LoadResult, error) {
	var res LoadResult

	info, err := os.Stat(dir)
	if err != nil {
		return res, errors.Wrap(err, "signatures directory")
	}
	if !info.IsDir() {
		return res, errors.Newf("signatures path %s is not a directory", dir)
	}

	current, verErr := semver.NewVersion(workerVersion)
	if verErr != nil {
		current = nil
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			ns := filepath.ToSlash(rel)
			if err := reg.RegisterNamespace(plugin.FamilySignature, ns); err != nil {
				res.Skipped = append(res.Skipped, Skipped{File: rel, Reason: err.Error()})
				return nil
			}
			res.Namespaces = append(res.Namespaces, ns)
			return nil
		}
		if !isYAML(path) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return errors.Wrapf(err, "stat %s", path)
		}
		if fi.Size() > maxRuleFileSize {
			res.Skipped = append(res.Skipped, Skipped{File: rel, Reason: "file exceeds 1 MB"})
			return nil
		}

		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
		raws, err := parseMultiDocYAML(data)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{File: rel, Reason: err.Error()})
			return nil
		}

		for _, raw := range raws {
			if reason := checkRequires(raw, current); reason != "" {
				res.Skipped = append(res.Skipped, Skipped{File: rel, Rule: raw.Name, Reason: reason})
				continue
			}
			rule, err := Compile(raw)
			if err != nil {
				res.Skipped = append(res.Skipped, Skipped{File: rel, Rule: raw.Name, Reason: err.Error()})
				continue
			}
			if err := reg.RegisterSignature(rule.Name(), factory(rule)); err != nil {
				res.Skipped = append(res.Skipped, Skipped{File: rel, Rule: rule.Name(), Reason: err.Error()})
				continue
			}
			res.Loaded = append(res.Loaded, rule.Name())
		}
		return nil
	})
	return res, err
}

func factory(rule *Rule) plugin.SignatureFactory {
	return func() plugin.Signature { return NewSignature(rule) }
}

// checkRequires returns a non-empty reason when raw cannot run on current.
// An unparseable worker version accepts every constraint.
func checkRequires(raw RawRule, current *semver.Version) string {
	if strings.TrimSpace(raw.Requires) == "" {
		return ""
	}
	c, err := semver.NewConstraint(raw.Requires)
	if err != nil {
		return "invalid requires constraint: " + err.Error()
	}
	if current == nil || c.Check(current) {
		return ""
	}
	return "requires worker " + raw.Requires + ", have " + current.String()
}

func parseMultiDocYAML(data []byte) ([]RawRule, error) {
	var rules []RawRule
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	for {
		var raw RawRule
		err := decoder.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if raw.Name != "" || len(raw.Conditions) > 0 {
			rules = append(rules, raw)
		}
	}
	return rules, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
