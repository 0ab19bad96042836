package kinds

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"driftsync/internal/reconciler"
)

// Adapter is the value-level strategy for one resource kind. It carries
// everything the generic engine and the readers need to know about the
// kind: where it lives in the tree, how it is compared, and how imported
// content is validated. There is no kind-specific engine code.
type Adapter struct {
	// Kind is the resource kind this adapter serves.
	Kind reconciler.Kind

	// TreeDir is the per-kind directory name in the tree layout.
	TreeDir string

	// Ext is the file extension used in the tree ("" for opaque files,
	// whose IDs already are relative paths).
	Ext string

	// Global marks kinds that live flat under TreeDir, outside any
	// namespace (dashboards).
	Global bool

	// Binary selects byte-exact comparison and disables validation.
	Binary bool

	// Validate parses content before it is imported into the instance.
	Validate reconciler.ValidateFunc
}

// TreePath maps a key to its path relative to the tree root:
// <scope>/<TreeDir>/<id><Ext>, or <TreeDir>/<id><Ext> for global kinds.
func (a Adapter) TreePath(key reconciler.ResourceKey) string {
	if a.Global {
		return path.Join(a.TreeDir, key.ID+a.Ext)
	}
	return path.Join(key.Scope, a.TreeDir, key.ID+a.Ext)
}

// KeyFor parses a tree-relative path back into a resource key. It reports
// false when the path does not belong to this adapter's layout for the
// given scope.
func (a Adapter) KeyFor(scope, relPath string) (reconciler.ResourceKey, bool) {
	prefix := a.TreeDir + "/"
	if !a.Global {
		prefix = scope + "/" + prefix
	}
	if !strings.HasPrefix(relPath, prefix) {
		return reconciler.ResourceKey{}, false
	}
	id := strings.TrimPrefix(relPath, prefix)
	if a.Ext != "" {
		if !strings.HasSuffix(id, a.Ext) {
			return reconciler.ResourceKey{}, false
		}
		id = strings.TrimSuffix(id, a.Ext)
		// IDs of extension-carrying kinds are flat names, not paths.
		if strings.Contains(id, "/") {
			return reconciler.ResourceKey{}, false
		}
	}
	if id == "" {
		return reconciler.ResourceKey{}, false
	}
	keyScope := scope
	if a.Global {
		keyScope = ""
	}
	return reconciler.ResourceKey{Scope: keyScope, ID: id, Kind: a.Kind}, true
}

// Hooks converts the adapter into the engine's per-kind capability value.
func (a Adapter) Hooks() reconciler.KindHooks {
	return reconciler.KindHooks{
		Validate: a.Validate,
		TreePath: a.TreePath,
		Binary:   a.Binary,
	}
}

// Definitions is the adapter for workflow definitions: namespace-scoped
// YAML documents under <namespace>/workflows/<id>.yaml.
var Definitions = Adapter{
	Kind:     reconciler.KindDefinition,
	TreeDir:  "workflows",
	Ext:      ".yaml",
	Validate: validateDefinition,
}

// Files is the adapter for opaque namespace files: byte-exact content under
// <namespace>/files/<relative path>, where the ID is the relative path.
var Files = Adapter{
	Kind:    reconciler.KindFile,
	TreeDir: "files",
	Binary:  true,
}

// Dashboards is the adapter for dashboard specifications: globally-scoped
// JSON documents under dashboards/<id>.json.
var Dashboards = Adapter{
	Kind:     reconciler.KindDashboard,
	TreeDir:  "dashboards",
	Ext:      ".json",
	Global:   true,
	Validate: validateDashboard,
}

// All returns every registered adapter in a stable order.
func All() []Adapter {
	return []Adapter{Definitions, Files, Dashboards}
}

// ByKind looks up the adapter for a kind.
func ByKind(kind reconciler.Kind) (Adapter, bool) {
	for _, a := range All() {
		if a.Kind == kind {
			return a, true
		}
	}
	return Adapter{}, false
}

// Hooks builds the planner's per-kind hook registry from all adapters.
func Hooks() map[reconciler.Kind]reconciler.KindHooks {
	hooks := make(map[reconciler.Kind]reconciler.KindHooks, len(All()))
	for _, a := range All() {
		hooks[a.Kind] = a.Hooks()
	}
	return hooks
}

// GlobalKinds reports which kinds are not namespace-scoped.
func GlobalKinds() map[reconciler.Kind]bool {
	global := make(map[reconciler.Kind]bool, len(All()))
	for _, a := range All() {
		global[a.Kind] = a.Global
	}
	return global
}

// Parse maps a configuration name ("definitions", "files", "dashboards") to
// its kind.
func Parse(name string) (reconciler.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "definitions", "definition", "workflows", "workflow":
		return reconciler.KindDefinition, nil
	case "files", "file":
		return reconciler.KindFile, nil
	case "dashboards", "dashboard":
		return reconciler.KindDashboard, nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", name)
	}
}

// validateDefinition requires a non-empty YAML mapping with a non-empty id.
func validateDefinition(content []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("not valid YAML: %w", err)
	}
	if len(doc) == 0 {
		return fmt.Errorf("definition is empty")
	}
	id, ok := doc["id"].(string)
	if !ok || id == "" {
		return fmt.Errorf("definition has no id")
	}
	return nil
}

// validateDashboard requires a JSON object with a non-empty title.
func validateDashboard(content []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	title, ok := doc["title"].(string)
	if !ok || title == "" {
		return fmt.Errorf("dashboard has no title")
	}
	return nil
}
