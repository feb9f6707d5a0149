// Package manifest renders the Kubernetes companion documents that are pushed
// alongside a provisioned pipeline: a deployment manifest, an autoscaling
// manifest and an optional application settings file.
//
// Rendering is literal placeholder substitution, not template-engine
// evaluation. A token that is not in the placeholder registry is left verbatim
// in the output so an operator-customized template keeps working even when it
// carries tokens this version does not know about. The registry below is the
// explicit contract for which tokens are substituted.
package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

//go:embed templates/deployment.yaml
var defaultDeploymentTemplate string

// Scaling manifest types.
const (
	ScalingTypeCPUMemory  = "cpu-memory"
	ScalingTypeMessageLag = "message-lag"
)

// Defaults substituted when the optional deployment fields are unset.
const (
	DefaultNamespace     = "default"
	DefaultAppType       = "api"
	DefaultProduct       = "platform"
	DefaultTargetPort    = 8080
	DefaultCPURequest    = "100m"
	DefaultCPULimit      = "500m"
	DefaultMemoryRequest = "128Mi"
	DefaultMemoryLimit   = "512Mi"

	DefaultMinReplicas     = 1
	DefaultMaxReplicas     = 5
	DefaultCPUThreshold    = 70
	DefaultMemoryThreshold = 80
	DefaultLagThreshold    = 100
)

// Placeholder describes one substitutable token in the deployment template.
// Required placeholders must be resolvable from the render arguments; optional
// ones fall back to their documented default.
type Placeholder struct {
	Token    string
	Required bool
	Default  string
}

// DeploymentPlaceholders is the registry of tokens substituted by RenderDeployment.
var DeploymentPlaceholders = []Placeholder{
	{Token: "{{PIPELINE_NAME}}", Required: true},
	{Token: "{{IMAGE_URI}}", Required: true},
	{Token: "{{NAMESPACE}}", Default: DefaultNamespace},
	{Token: "{{APP_TYPE}}", Default: DefaultAppType},
	{Token: "{{PRODUCT}}", Default: DefaultProduct},
	{Token: "{{TARGET_PORT}}", Default: strconv.Itoa(DefaultTargetPort)},
	{Token: "{{CPU_REQUEST}}", Default: DefaultCPURequest},
	{Token: "{{CPU_LIMIT}}", Default: DefaultCPULimit},
	{Token: "{{MEMORY_REQUEST}}", Default: DefaultMemoryRequest},
	{Token: "{{MEMORY_LIMIT}}", Default: DefaultMemoryLimit},
	{Token: "{{NODE_AFFINITY}}", Default: ""},
	{Token: "{{NODE_GROUP}}", Default: ""},
}

// nodeAffinityBlock is inserted for {{NODE_AFFINITY}} when the deployment is
// pinned to a dedicated node group. Indentation matches the pod spec level of
// the default template.
const nodeAffinityBlock = `      nodeSelector:
        node-group: {{NODE_GROUP}}
      tolerations:
        - key: node-group
          operator: Equal
          value: {{NODE_GROUP}}
          effect: NoSchedule`

// ResourceConfig holds container resource requests and limits.
type ResourceConfig struct {
	CPURequest    string `json:"cpuRequest,omitempty"`
	CPULimit      string `json:"cpuLimit,omitempty"`
	MemoryRequest string `json:"memoryRequest,omitempty"`
	MemoryLimit   string `json:"memoryLimit,omitempty"`
}

// DeploymentConfig is the optional deployment section of a pipeline request.
type DeploymentConfig struct {
	Namespace            string         `json:"namespace,omitempty"`
	AppType              string         `json:"appType,omitempty"`
	Product              string         `json:"product,omitempty"`
	TargetPort           int            `json:"targetPort,omitempty"`
	Resources            ResourceConfig `json:"resources,omitempty"`
	UseSpecificNodeGroup bool           `json:"useSpecificNodeGroup,omitempty"`
	NodeGroup            string         `json:"nodeGroup,omitempty"`
}

// ScalingConfig is the optional autoscaling section of a pipeline request,
// discriminated by Type.
type ScalingConfig struct {
	Type            string `json:"type"`
	MinReplicas     int    `json:"minReplicas,omitempty"`
	MaxReplicas     int    `json:"maxReplicas,omitempty"`
	CPUThreshold    int    `json:"cpuThreshold,omitempty"`
	MemoryThreshold int    `json:"memoryThreshold,omitempty"`
	Broker          string `json:"broker,omitempty"`
	Topic           string `json:"topic,omitempty"`
	ConsumerGroup   string `json:"consumerGroup,omitempty"`
	LagThreshold    int    `json:"lagThreshold,omitempty"`
}

// Generator renders manifests from the embedded default template or an
// operator-supplied override file.
type Generator struct {
	templatePath string
}

// NewGenerator creates a generator. templatePath may be empty, in which case
// the built-in deployment template is used.
func NewGenerator(templatePath string) *Generator {
	return &Generator{templatePath: templatePath}
}

func (g *Generator) deploymentTemplate() (string, error) {
	if g.templatePath == "" {
		return defaultDeploymentTemplate, nil
	}
	content, err := os.ReadFile(g.templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read deployment template %s: %w", g.templatePath, err)
	}
	return string(content), nil
}

// RenderDeployment substitutes the placeholder registry into the deployment
// template. pipelineName and imageURI are required, every other value falls
// back to its documented default when unset in cfg.
func (g *Generator) RenderDeployment(pipelineName, imageURI string, cfg DeploymentConfig) (string, error) {
	if pipelineName == "" {
		return "", fmt.Errorf("pipeline name is required to render a deployment manifest")
	}
	if imageURI == "" {
		return "", fmt.Errorf("image URI is required to render a deployment manifest")
	}

	template, err := g.deploymentTemplate()
	if err != nil {
		return "", err
	}

	affinity := ""
	if cfg.UseSpecificNodeGroup {
		affinity = nodeAffinityBlock
	}

	values := map[string]string{
		"{{PIPELINE_NAME}}":  pipelineName,
		"{{IMAGE_URI}}":      imageURI,
		"{{NAMESPACE}}":      cfg.Namespace,
		"{{APP_TYPE}}":       cfg.AppType,
		"{{PRODUCT}}":        cfg.Product,
		"{{TARGET_PORT}}":    intOrEmpty(cfg.TargetPort),
		"{{CPU_REQUEST}}":    cfg.Resources.CPURequest,
		"{{CPU_LIMIT}}":      cfg.Resources.CPULimit,
		"{{MEMORY_REQUEST}}": cfg.Resources.MemoryRequest,
		"{{MEMORY_LIMIT}}":   cfg.Resources.MemoryLimit,
		"{{NODE_AFFINITY}}":  affinity,
		"{{NODE_GROUP}}":     cfg.NodeGroup,
	}

	// The affinity block is substituted first so its own tokens resolve in the
	// same pass over the registry.
	rendered := strings.ReplaceAll(template, "{{NODE_AFFINITY}}", affinity)
	for _, p := range DeploymentPlaceholders {
		value := values[p.Token]
		if value == "" {
			value = p.Default
		}
		rendered = strings.ReplaceAll(rendered, p.Token, value)
	}
	return rendered, nil
}

const hpaTemplate = `apiVersion: autoscaling/v2
kind: HorizontalPodAutoscaler
metadata:
  name: {{PIPELINE_NAME}}-hpa
  namespace: {{NAMESPACE}}
spec:
  scaleTargetRef:
    apiVersion: apps/v1
    kind: Deployment
    name: {{PIPELINE_NAME}}
  minReplicas: {{MIN_REPLICAS}}
  maxReplicas: {{MAX_REPLICAS}}
  metrics:
    - type: Resource
      resource:
        name: cpu
        target:
          type: Utilization
          averageUtilization: {{CPU_THRESHOLD}}
    - type: Resource
      resource:
        name: memory
        target:
          type: Utilization
          averageUtilization: {{MEMORY_THRESHOLD}}
`

const scaledObjectTemplate = `apiVersion: keda.sh/v1alpha1
kind: ScaledObject
metadata:
  name: {{PIPELINE_NAME}}-scaler
  namespace: {{NAMESPACE}}
spec:
  scaleTargetRef:
    name: {{PIPELINE_NAME}}
  minReplicaCount: {{MIN_REPLICAS}}
  maxReplicaCount: {{MAX_REPLICAS}}
  triggers:
    - type: kafka
      metadata:
        bootstrapServers: {{BROKER}}
        topic: {{TOPIC}}
        consumerGroup: {{CONSUMER_GROUP}}
        lagThreshold: "{{LAG_THRESHOLD}}"
`

// RenderScaling produces the autoscaling manifest matching cfg.Type: a
// HorizontalPodAutoscaler for cpu-memory scaling, a message-lag ScaledObject
// otherwise. Unset bounds and thresholds use the package defaults.
func (g *Generator) RenderScaling(pipelineName, namespace string, cfg ScalingConfig) (string, error) {
	if pipelineName == "" {
		return "", fmt.Errorf("pipeline name is required to render a scaling manifest")
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	values := map[string]string{
		"{{PIPELINE_NAME}}":    pipelineName,
		"{{NAMESPACE}}":        namespace,
		"{{MIN_REPLICAS}}":     strconv.Itoa(orDefault(cfg.MinReplicas, DefaultMinReplicas)),
		"{{MAX_REPLICAS}}":     strconv.Itoa(orDefault(cfg.MaxReplicas, DefaultMaxReplicas)),
		"{{CPU_THRESHOLD}}":    strconv.Itoa(orDefault(cfg.CPUThreshold, DefaultCPUThreshold)),
		"{{MEMORY_THRESHOLD}}": strconv.Itoa(orDefault(cfg.MemoryThreshold, DefaultMemoryThreshold)),
		"{{BROKER}}":           cfg.Broker,
		"{{TOPIC}}":            cfg.Topic,
		"{{CONSUMER_GROUP}}":   cfg.ConsumerGroup,
		"{{LAG_THRESHOLD}}":    strconv.Itoa(orDefault(cfg.LagThreshold, DefaultLagThreshold)),
	}

	var template string
	switch cfg.Type {
	case ScalingTypeCPUMemory:
		template = hpaTemplate
	case ScalingTypeMessageLag:
		if cfg.Broker == "" || cfg.Topic == "" || cfg.ConsumerGroup == "" {
			return "", fmt.Errorf("message-lag scaling requires broker, topic and consumerGroup")
		}
		template = scaledObjectTemplate
	default:
		return "", fmt.Errorf("unknown scaling type %q", cfg.Type)
	}

	rendered := template
	for token, value := range values {
		rendered = strings.ReplaceAll(rendered, token, value)
	}
	return rendered, nil
}

// RenderAppsettings produces the application settings JSON file uploaded next
// to the manifests. The service name key is always present; settings supplied
// by the operator are carried through as-is.
func (g *Generator) RenderAppsettings(pipelineName string, settings map[string]any) (string, error) {
	if pipelineName == "" {
		return "", fmt.Errorf("pipeline name is required to render appsettings")
	}

	document := map[string]any{"ServiceName": pipelineName}
	for key, value := range settings {
		document[key] = value
	}

	body, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal appsettings for %s: %w", pipelineName, err)
	}
	return string(body) + "\n", nil
}

func intOrEmpty(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
