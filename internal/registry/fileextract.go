package registry

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Keys of one function entry in a data declaration file.
const (
	entryType   = "type"
	entryGlobal = "global"
	entryConfig = "config"
)

// ExtractYAML reads a YAML or JSON declaration:
//
//	internal/jsonenc/article.go:
//	  EncodeArticle:
//	    type: example.com/app/models.Article
//	    global: {escapeHtml: true}
//	    config: {keyOrder: [title]}
//
// Targets and functions keep their document order.
func ExtractYAML(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "can't parse file %q", path)
	}

	defaultPkg := declaringPackage(path)

	set := NewSet()
	if len(doc.Content) == 0 {
		return set, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Newf("%s: expected a mapping of output targets", yamlPos(path, root))
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		target, fns := root.Content[i].Value, root.Content[i+1]
		if fns.Kind != yaml.MappingNode {
			return nil, errors.Newf("%s: functions of %q must be a mapping", yamlPos(path, fns), target)
		}
		for j := 0; j+1 < len(fns.Content); j += 2 {
			name, node := fns.Content[j].Value, fns.Content[j+1]
			var entry map[string]any
			if err := node.Decode(&entry); err != nil {
				return nil, errors.Wrapf(err, "%s: %s", yamlPos(path, node), name)
			}
			r, err := entryRegistration(entry, defaultPkg)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: %s", yamlPos(path, node), name)
			}
			r.OutputTarget, r.FunctionName, r.Pos = target, name, yamlPos(path, node)
			set.Add(r)
		}
	}
	return set, nil
}

// ExtractTOML reads a TOML declaration with one table per function:
//
//	["internal/jsonenc/article.go".EncodeArticle]
//	type = "example.com/app/models.Article"
//	config = { keyOrder = ["title"] }
func ExtractTOML(path string) (*Set, error) {
	var doc map[string]any
	md, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, errors.Wrapf(err, "can't parse file %q", path)
	}

	defaultPkg := declaringPackage(path)

	set := NewSet()
	for _, k := range md.Keys() {
		if len(k) != 2 {
			continue
		}
		target, name := k[0], k[1]
		pos := filepath.Base(path) + ":" + k.String()
		fns, ok := doc[target].(map[string]any)
		if !ok {
			return nil, errors.Newf("%s: functions of %q must be a table", pos, target)
		}
		entry, ok := fns[name].(map[string]any)
		if !ok {
			return nil, errors.Newf("%s: %s must be a table", pos, name)
		}
		r, err := entryRegistration(entry, defaultPkg)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", pos)
		}
		r.OutputTarget, r.FunctionName, r.Pos = target, name, pos
		set.Add(r)
	}
	return set, nil
}

// declaringPackage is the package bare type names in a data file refer to.
// Outside a module there is none and such names will not be found.
func declaringPackage(path string) string {
	dir := filepath.Dir(path)
	mod, err := FindModule(dir)
	if err != nil {
		return ""
	}
	p, err := mod.PackagePath(dir)
	if err != nil {
		return ""
	}
	return p
}

func yamlPos(path string, n *yaml.Node) string {
	return fmt.Sprintf("%s:%d", filepath.Base(path), n.Line)
}

func entryRegistration(entry map[string]any, defaultPkg string) (Registration, error) {
	var r Registration
	for k := range entry {
		if k != entryType && k != entryGlobal && k != entryConfig {
			return r, errors.Newf("unknown key %q, expected type, global or config", k)
		}
	}
	ref, ok := entry[entryType].(string)
	if !ok || ref == "" {
		return r, errors.New("missing type")
	}
	r.TypePackage, r.TypeName = SplitTypeRef(ref, defaultPkg)

	var err error
	if r.Global, err = Normalize(entry[entryGlobal]); err != nil {
		return r, errors.Wrap(err, "global")
	}
	if r.Config, err = Normalize(entry[entryConfig]); err != nil {
		return r, errors.Wrap(err, "config")
	}
	return r, nil
}

// SplitTypeRef splits "import/path.Name". A bare name belongs to defaultPkg.
func SplitTypeRef(ref, defaultPkg string) (pkg, name string) {
	dot := strings.LastIndex(ref, ".")
	if dot < 0 || dot < strings.LastIndex(ref, "/") {
		return defaultPkg, ref
	}
	return ref[:dot], ref[dot+1:]
}

// Normalize converts decoded YAML or TOML values into a raw configuration
// tree.
func Normalize(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return float64(v), nil
		}
		return int64(v), nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			n, err := Normalize(e)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", k)
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			ks, ok := k.(string)
			if !ok {
				return nil, errors.Newf("key %v is not a string", k)
			}
			n, err := Normalize(e)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", ks)
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			n, err := Normalize(e)
			if err != nil {
				return nil, errors.Wrapf(err, "[%d]", i)
			}
			out[i] = n
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, e := range v {
			n, err := Normalize(e)
			if err != nil {
				return nil, errors.Wrapf(err, "[%d]", i)
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, errors.Newf("unsupported value %v (%T)", v, v)
}
