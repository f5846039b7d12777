package models

// Component is an architectural part of the generated project.
//
// The workflow builder branches on exact members of this enum. Adding a
// component that needs its own generation task means updating the constants,
// Generator and the builder in internal/workflow together.
type Component string

const (
	// ComponentBackend requests a backend service.
	ComponentBackend Component = "backend"
	// ComponentFrontend requests a frontend application.
	ComponentFrontend Component = "frontend"
	// ComponentDatabase requests a database.
	ComponentDatabase Component = "database"
	// ComponentCache requests a cache.
	ComponentCache Component = "cache"
	// ComponentMessaging requests a message broker.
	ComponentMessaging Component = "messaging"
)

// AllComponents lists every component in declaration order.
var AllComponents = []Component{
	ComponentBackend,
	ComponentFrontend,
	ComponentDatabase,
	ComponentCache,
	ComponentMessaging,
}

// Valid returns true if the component is a known value.
func (c Component) Valid() bool {
	switch c {
	case ComponentBackend, ComponentFrontend, ComponentDatabase, ComponentCache, ComponentMessaging:
		return true
	default:
		return false
	}
}

// Generator returns the agent that generates code for this component.
// Only backend and frontend have a dedicated generation task.
func (c Component) Generator() (agentID string, ok bool) {
	switch c {
	case ComponentBackend:
		return AgentBackend, true
	case ComponentFrontend:
		return AgentFrontend, true
	default:
		return "", false
	}
}

// Feature is an optional cross-cutting capability. Features are passed to
// agents untouched.
type Feature string

const (
	FeatureAuthentication Feature = "authentication"
	FeatureAuthorization  Feature = "authorization"
	FeatureBilling        Feature = "billing"
	FeatureNotifications  Feature = "notifications"
	FeatureFileUpload     Feature = "file_upload"
	FeatureSearch         Feature = "search"
	FeatureAnalytics      Feature = "analytics"
	FeatureAdminPanel     Feature = "admin_panel"
	FeatureAIChat         Feature = "ai_chat"
	FeatureMonitoring     Feature = "monitoring"
)

// Valid returns true if the feature is a known value.
func (f Feature) Valid() bool {
	switch f {
	case FeatureAuthentication, FeatureAuthorization, FeatureBilling,
		FeatureNotifications, FeatureFileUpload, FeatureSearch,
		FeatureAnalytics, FeatureAdminPanel, FeatureAIChat, FeatureMonitoring:
		return true
	default:
		return false
	}
}

// Template is the project blueprint the agents start from.
type Template string

const (
	TemplateSaaSBasic     Template = "saas-basic"
	TemplateMicroservices Template = "microservices"
	TemplateAIReady       Template = "ai-ready"
	TemplateECommerce     Template = "e-commerce"
	TemplateBlogCMS       Template = "blog-cms"
)

// DefaultTemplate is used when a configuration does not name one.
const DefaultTemplate = TemplateSaaSBasic

// Valid returns true if the template is a known value.
func (t Template) Valid() bool {
	switch t {
	case TemplateSaaSBasic, TemplateMicroservices, TemplateAIReady, TemplateECommerce, TemplateBlogCMS:
		return true
	default:
		return false
	}
}

// Well-known agent identifiers.
const (
	AgentArchitect = "architect_agent"
	AgentBackend   = "backend_agent"
	AgentFrontend  = "frontend_agent"
	AgentDevOps    = "devops_agent"
)

// RequiredAgents returns the agents a project generation needs, in the
// order they are checked: architect, the generators for the selected
// components, then devops.
func RequiredAgents(components []Component) []string {
	agents := []string{AgentArchitect}
	for _, c := range AllComponents {
		if !containsComponent(components, c) {
			continue
		}
		if id, ok := c.Generator(); ok {
			agents = append(agents, id)
		}
	}
	return append(agents, AgentDevOps)
}

func containsComponent(components []Component, c Component) bool {
	for _, have := range components {
		if have == c {
			return true
		}
	}
	return false
}
