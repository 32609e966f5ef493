package installer

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/httprunner/InstallAgent/internal/changeset"
)

// FileLister returns the complete ordered artifact list of a full install.
type FileLister func(ctx context.Context) ([]changeset.Artifact, error)

// DependencyProvider answers dependency-tree questions by variant name.
type DependencyProvider interface {
	// HasMainDependencies reports whether the main bundle of variant has
	// dependencies, which requires pushing the patch APK.
	HasMainDependencies(variant string) bool
}

// StaticDependencies maps variant name to its main-bundle dependencies.
type StaticDependencies map[string][]string

func (s StaticDependencies) HasMainDependencies(variant string) bool {
	return len(s[variant]) > 0
}

type dependencyFile struct {
	Variants map[string]struct {
		MainDependencies []string `yaml:"mainDependencies"`
	} `yaml:"variants"`
}

// LoadDependencyFile reads a YAML manifest of the form
//
//	variants:
//	  debug:
//	    mainDependencies: [com.taobao.android:lib-a]
func LoadDependencyFile(path string) (StaticDependencies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read dependency file %s", path)
	}
	var doc dependencyFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse dependency file %s", path)
	}
	deps := make(StaticDependencies, len(doc.Variants))
	for name, v := range doc.Variants {
		deps[strings.TrimSpace(name)] = v.MainDependencies
	}
	return deps, nil
}

// LoadChangeFile reads a change map produced by an external change detector:
//
//	changes:
//	  /out/b1.apk: changed
//	  /out/b2.apk: new
func LoadChangeFile(path string) (changeset.ChangeMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read change file %s", path)
	}
	var doc struct {
		Changes map[string]string `yaml:"changes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse change file %s", path)
	}
	statuses := make(map[string]changeset.Status, len(doc.Changes))
	for p, raw := range doc.Changes {
		status, ok := changeset.ParseStatus(raw)
		if !ok {
			return nil, errors.Errorf("change file %s: unknown status %q for %s", path, raw, p)
		}
		statuses[strings.TrimSpace(p)] = status
	}
	return changeset.FromMap(statuses), nil
}

// BundleFiles lists the bundle APKs of variant followed by patchAPK when the
// main bundle has dependencies.
func BundleFiles(variant string, bundles []string, patchAPK string, deps DependencyProvider) FileLister {
	return func(ctx context.Context) ([]changeset.Artifact, error) {
		out := make([]changeset.Artifact, 0, len(bundles)+1)
		for _, b := range bundles {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, changeset.Artifact(b))
			}
		}
		if deps != nil && deps.HasMainDependencies(variant) {
			if strings.TrimSpace(patchAPK) == "" {
				return nil, errors.Errorf("variant %s has main dependencies but no patch apk", variant)
			}
			out = append(out, changeset.Artifact(patchAPK))
		}
		return out, nil
	}
}
