package subscriptions

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// OrchestrationPack groups orchestrators a downstream module registers next
// to the built-in subscription workflows.
type OrchestrationPack struct {
	Name          string
	Orchestrators map[string]OrchestratorFunc
}

type CommandQueryBundleFactory func(facade *Facade) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	orchestrationPacks map[string]OrchestrationPack
	bundles            map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		orchestrationPacks: map[string]OrchestrationPack{},
		bundles:            map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterOrchestrationPack(pack OrchestrationPack) error {
	if h == nil {
		return fmt.Errorf("subscriptions: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("subscriptions: orchestration pack name is required")
	}
	if len(pack.Orchestrators) == 0 {
		return fmt.Errorf("subscriptions: orchestration pack %q has no orchestrators", name)
	}

	normalized := OrchestrationPack{Name: name, Orchestrators: make(map[string]OrchestratorFunc, len(pack.Orchestrators))}
	for orchestrator, fn := range pack.Orchestrators {
		orchestrator = strings.TrimSpace(orchestrator)
		if orchestrator == "" || fn == nil {
			return fmt.Errorf("subscriptions: orchestration pack %q has an empty entry", name)
		}
		if orchestrator == OrchestrationSubscriptionManager || orchestrator == OrchestrationSubscriptionNotification {
			return fmt.Errorf("subscriptions: orchestration pack %q cannot replace built-in %q", name, orchestrator)
		}
		normalized.Orchestrators[orchestrator] = fn
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.orchestrationPacks[name]; exists {
		return fmt.Errorf("subscriptions: orchestration pack %q already registered", name)
	}
	h.orchestrationPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(name string, factory CommandQueryBundleFactory) error {
	if h == nil {
		return fmt.Errorf("subscriptions: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("subscriptions: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("subscriptions: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("subscriptions: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyOrchestrationPacks registers every pack orchestrator on runtime in
// pack name order, then orchestrator name order.
func (h *ExtensionHooks) ApplyOrchestrationPacks(runtime *Runtime) error {
	if h == nil {
		return nil
	}
	if runtime == nil {
		return fmt.Errorf("subscriptions: runtime is required")
	}
	for _, pack := range h.OrchestrationPacks() {
		names := make([]string, 0, len(pack.Orchestrators))
		for name := range pack.Orchestrators {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := runtime.Register(name, pack.Orchestrators[name]); err != nil {
				return fmt.Errorf("subscriptions: apply orchestration pack %q: %w", pack.Name, err)
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(facade *Facade) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if facade == nil {
		return nil, fmt.Errorf("subscriptions: facade is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		names = append(names, name)
		factories[name] = factory
	}
	h.mu.RUnlock()
	sort.Strings(names)

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](facade)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) OrchestrationPacks() []OrchestrationPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.orchestrationPacks))
	for name := range h.orchestrationPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]OrchestrationPack, 0, len(names))
	for _, name := range names {
		pack := h.orchestrationPacks[name]
		copied := make(map[string]OrchestratorFunc, len(pack.Orchestrators))
		for key, fn := range pack.Orchestrators {
			copied[key] = fn
		}
		out = append(out, OrchestrationPack{Name: pack.Name, Orchestrators: copied})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
