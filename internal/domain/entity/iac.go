package entity

// IaCKind identifies the flavor of infrastructure code a request asks for.
type IaCKind string

const (
	KindTerraform      IaCKind = "Terraform"
	KindCloudFormation IaCKind = "CloudFormation"
	KindKubernetes     IaCKind = "Kubernetes (Manifests)"
	KindHelm           IaCKind = "Helm Chart"
	KindDocker         IaCKind = "Docker"
	KindCICD           IaCKind = "CI/CD Pipeline"
	KindOPA            IaCKind = "OPA Policy"
	KindARM            IaCKind = "Azure Resource Manager (ARM)"
)

// IaCKinds lists the supported kinds in display order.
func IaCKinds() []IaCKind {
	return []IaCKind{
		KindTerraform,
		KindCloudFormation,
		KindKubernetes,
		KindHelm,
		KindDocker,
		KindCICD,
		KindOPA,
		KindARM,
	}
}

var kindExtensions = map[IaCKind]string{
	KindTerraform:      ".tf",
	KindCloudFormation: ".yaml",
	KindKubernetes:     ".yaml",
	KindHelm:           ".yaml",
	KindDocker:         "Dockerfile",
	KindCICD:           ".yaml",
	KindOPA:            ".rego",
	KindARM:            ".json",
}

var kindLanguages = map[IaCKind]string{
	KindTerraform:      "terraform",
	KindCloudFormation: "yaml",
	KindKubernetes:     "yaml",
	KindHelm:           "yaml",
	KindDocker:         "dockerfile",
	KindCICD:           "yaml",
	KindOPA:            "rego",
	KindARM:            "json",
}

// FileExtension returns the canonical file suffix for the kind.
// Docker is the odd one out: the "extension" is the whole file name.
func (k IaCKind) FileExtension() string {
	if ext, ok := kindExtensions[k]; ok {
		return ext
	}
	return ".txt"
}

// Language returns the syntax-highlighting language for the kind.
func (k IaCKind) Language() string {
	if lang, ok := kindLanguages[k]; ok {
		return lang
	}
	return "text"
}
