package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptDeterministic(t *testing.T) {
	req := GenerateRequest{
		Description:   "three-tier web app",
		Kind:          KindTerraform,
		CloudProvider: "AWS",
		Region:        "eu-west-1",
		Tags:          []string{"env=prod", "team=platform"},
	}

	first := BuildPrompt(req)
	second := BuildPrompt(req)
	assert.Equal(t, first, second, "identical requests must produce byte-identical prompts")
}

func TestBuildPromptContextBlock(t *testing.T) {
	req := GenerateRequest{
		Description:   "a private S3 bucket",
		Kind:          KindTerraform,
		CloudProvider: "AWS",
		Region:        "us-east-1",
		Tags:          []string{"env=dev", "owner=me"},
	}

	prompt := BuildPrompt(req)

	assert.Contains(t, prompt, "- Provider: AWS")
	assert.Contains(t, prompt, "- Region: us-east-1")
	assert.Contains(t, prompt, "  - env=dev")
	assert.Contains(t, prompt, "  - owner=me")
	assert.Contains(t, prompt, "a private S3 bucket")
	assert.Contains(t, prompt, string(KindTerraform))

	// Tag order is preserved.
	assert.Less(t, strings.Index(prompt, "env=dev"), strings.Index(prompt, "owner=me"))
}

func TestBuildPromptOmitsEmptyOptionalFields(t *testing.T) {
	req := GenerateRequest{
		Description:   "a queue",
		Kind:          KindCloudFormation,
		CloudProvider: "AWS",
	}

	prompt := BuildPrompt(req)

	assert.NotContains(t, prompt, "- Region:")
	assert.NotContains(t, prompt, "Resource Tags")
	assert.NotContains(t, prompt, "Target Version Constraints")
}

func TestBuildPromptSingleVersionClause(t *testing.T) {
	req := GenerateRequest{
		Description:    "a vpc",
		Kind:           KindTerraform,
		CloudProvider:  "AWS",
		TargetVersions: "terraform >= 1.5, aws provider ~> 5.0",
	}

	prompt := BuildPrompt(req)

	require.Contains(t, prompt, "Target Version Constraints")
	assert.Equal(t, 1, strings.Count(prompt, "Target Version Constraints"))
	assert.Contains(t, prompt, "terraform >= 1.5, aws provider ~> 5.0")
}

func TestBuildRevisionPromptEmbedsPriorCodeAndFeedback(t *testing.T) {
	req := GenerateRequest{
		Description:   "a vpc",
		Kind:          KindTerraform,
		CloudProvider: "AWS",
	}
	prior := `resource "aws_vpc" "main" {}`
	feedback := "add two private subnets"

	prompt := BuildRevisionPrompt(req, prior, feedback)

	assert.Contains(t, prompt, prior)
	assert.Contains(t, prompt, feedback)
	assert.Contains(t, prompt, BuildPrompt(req), "revision prompt wraps the base prompt")
}

func TestTagLinesSkipsBlankEntries(t *testing.T) {
	req := GenerateRequest{
		Description:   "x",
		Kind:          KindTerraform,
		CloudProvider: "AWS",
		Tags:          []string{"a=1", "  ", "", "b=2"},
	}

	prompt := BuildPrompt(req)

	assert.Contains(t, prompt, "  - a=1")
	assert.Contains(t, prompt, "  - b=2")
	assert.NotContains(t, prompt, "  - \n")
}
