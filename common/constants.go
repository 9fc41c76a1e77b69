package common

const (
	SrcFileExtension     = ".mu"
	ArchiveFileExtension = ".muc"
	DocFileExtension     = ".mud"
	ConfigFileName       = "mu-runtime.toml"
	MuVersion            = "0.1.0"

	// ArchiveVersion is the semantic version written into every archive.  Readers
	// accept any archive sharing its major version.
	ArchiveVersion = "v1.2.0"

	// ModulePathEnv lists extra module directories searched before the
	// configured ones; MuPathEnv names the installation directory
	ModulePathEnv = "MU_MODULE_PATH"
	MuPathEnv     = "MU_PATH"

	// NativeEntryPoint is the symbol looked up in native module libraries.
	NativeEntryPoint = "MuInitialize"
)

// NativeExtensions lists the shared library extensions tried, in order, when
// searching for a native module.
var NativeExtensions = []string{".so", ".dll", ".dylib"}

// MuPath is the path to the Mu installation directory
var MuPath = ""
