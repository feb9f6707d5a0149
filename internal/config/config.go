package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"3002" desc:"Port where API will be served"`
	MetricsPort    int    `envconfig:"METRICS_PORT" default:"9090" desc:"Port where Metrics will be served"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPrettyPrint bool   `envconfig:"LOG_PRETTY" default:"false"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS" default:"*" desc:"Comma separated list of allowed origins"`

	AWSRegion          string        `envconfig:"AWS_REGION" default:"eu-west-1"`
	AWSAccessKeyID     string        `envconfig:"AWS_ACCESS_KEY_ID" desc:"Static credentials; default chain when empty"`
	AWSSecretAccessKey string        `envconfig:"AWS_SECRET_ACCESS_KEY"`
	AWSSessionToken    string        `envconfig:"AWS_SESSION_TOKEN"`
	AWSCallTimeout     time.Duration `envconfig:"AWS_CALL_TIMEOUT" default:"30s" desc:"Per AWS API call timeout"`

	MetadataTableName string `envconfig:"METADATA_TABLE_NAME" default:"pipeline-builder-metadata"`

	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT" default:"30m" desc:"Hard cap on an editing session"`

	PipelineRoleName     string `envconfig:"PIPELINE_ROLE_NAME" default:"codepipeline-service-role" desc:"IAM role assumed by CodePipeline"`
	BuildRoleName        string `envconfig:"BUILD_ROLE_NAME" default:"codebuild-service-role" desc:"IAM role assumed by CodeBuild"`
	ConnectionName       string `envconfig:"CONNECTION_NAME" default:"git-connection" desc:"CodeStar connection to the source provider"`
	BuildImage           string `envconfig:"BUILD_IMAGE" default:"aws/codebuild/standard:7.0"`
	BuildEnvironmentType string `envconfig:"BUILD_ENVIRONMENT_TYPE" default:"LINUX_CONTAINER"`
	BuildSecurityGroups  string `envconfig:"BUILD_SECURITY_GROUPS" desc:"Comma separated security group ids for builds in the shared network"`

	ManifestRepository    string `envconfig:"MANIFEST_REPOSITORY" default:"k8s-manifests" desc:"CodeCommit repository receiving deployment manifests"`
	ManifestBranch        string `envconfig:"MANIFEST_BRANCH" default:"main"`
	AppsettingsRepository string `envconfig:"APPSETTINGS_REPOSITORY" default:"appsettings" desc:"CodeCommit repository receiving application settings"`
	AppsettingsBranch     string `envconfig:"APPSETTINGS_BRANCH" default:"main"`
	DeploymentTemplate    string `envconfig:"DEPLOYMENT_TEMPLATE" desc:"Path to an operator deployment template; embedded default when empty"`
}

func MustParse() Config {
	var s Config
	err := envconfig.Process("", &s)
	if err != nil {
		_ = envconfig.Usage("", &s)
		log.Fatal().Msg(err.Error())
	}

	return s
}
