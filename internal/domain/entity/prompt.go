package entity

import (
	"fmt"
	"strings"
)

// SystemInstruction is the fixed system message sent with every generate call,
// regardless of backend.
const SystemInstruction = "You are an expert Infrastructure-as-Code engineer. Generate valid, secure cloud infrastructure configurations."

// BuildPrompt renders a request into the single text prompt sent to a
// provider. Pure and deterministic: identical requests produce byte-identical
// prompts.
func BuildPrompt(req GenerateRequest) string {
	var b strings.Builder

	b.WriteString("Cloud Environment Context:\n")
	fmt.Fprintf(&b, "- Provider: %s\n", req.CloudProvider)
	if req.Region != "" {
		fmt.Fprintf(&b, "- Region: %s\n", req.Region)
	}
	if tags := tagLines(req.Tags); tags != "" {
		b.WriteString("- Resource Tags:\n")
		b.WriteString(tags)
	}

	fmt.Fprintf(&b, "\nYou are a specialized Infrastructure as Code expert focusing on %s. Your task is to generate secure and production-ready code following these guidelines:\n", req.Kind)
	b.WriteString("\n1. Analyze Requirements:\n")
	fmt.Fprintf(&b, "- Infrastructure Description: %s\n", req.Description)
	b.WriteString("- Consider scalability, high availability, and disaster recovery requirements\n")
	b.WriteString("- Identify potential security implications and compliance needs\n")
	b.WriteString("\n2. Code Generation Guidelines:\n")
	b.WriteString("- Follow security best practices and compliance standards\n")
	b.WriteString("- Include comprehensive comments explaining each resource and its purpose\n")
	b.WriteString("- Document security considerations and potential risks\n")
	b.WriteString("- Provide parameter descriptions and valid value ranges\n")
	b.WriteString("- Implement proper resource naming conventions and tagging\n")
	b.WriteString("- Add error handling and input validation where applicable\n")
	b.WriteString("- IMPORTANT: Include standard version constraints for the IaC tool and any providers used (e.g., `required_version` and `required_providers` block in Terraform).\n")
	b.WriteString("\n3. Resource Configuration:\n")
	b.WriteString("- List all relevant configuration options for each resource\n")
	b.WriteString("- Highlight required vs optional parameters\n")
	b.WriteString("- Include recommended values and usage examples\n")
	b.WriteString("- Document dependencies between resources\n")

	b.WriteString("\nProvide the infrastructure code with detailed comments and proper formatting.")
	if req.TargetVersions != "" {
		fmt.Fprintf(&b, "\nTarget Version Constraints:\nPlease ensure the generated code is compatible with and explicitly specifies the following versions if applicable:\n%s", req.TargetVersions)
	}
	b.WriteString("\nInclude a brief summary of security considerations and available configuration options.")

	return b.String()
}

// BuildRevisionPrompt wraps the base prompt with the previously generated code
// and the user's feedback for the modify transition.
func BuildRevisionPrompt(req GenerateRequest, priorCode, feedback string) string {
	var b strings.Builder
	b.WriteString(BuildPrompt(req))
	b.WriteString("\n\nPreviously generated code:\n```\n")
	b.WriteString(priorCode)
	b.WriteString("\n```\n\nUser feedback for modifications:\n")
	b.WriteString(feedback)
	b.WriteString("\n\nPlease provide an updated version of the code that addresses this feedback.\n")
	return b.String()
}

func tagLines(tags []string) string {
	var b strings.Builder
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	return b.String()
}
