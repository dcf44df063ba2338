package manifest

// TSConfig is the tsconfig.json written next to a TypeScript server.
type TSConfig struct {
	CompilerOptions CompilerOptions `json:"compilerOptions"`
}

// CompilerOptions is the subset of TypeScript compiler options the generated
// project sets.
type CompilerOptions struct {
	Lib                              []string `json:"lib"`
	Declaration                      bool     `json:"declaration"`
	SourceMap                        bool     `json:"sourceMap"`
	OutDir                           string   `json:"outDir"`
	Strict                           bool     `json:"strict"`
	ModuleResolution                 string   `json:"moduleResolution"`
	ESModuleInterop                  bool     `json:"esModuleInterop"`
	SkipLibCheck                     bool     `json:"skipLibCheck"`
	ForceConsistentCasingInFileNames bool     `json:"forceConsistentCasingInFileNames"`
}

// DefaultTSConfig returns the fixed compiler configuration for generated
// TypeScript servers.
func DefaultTSConfig() *TSConfig {
	return &TSConfig{CompilerOptions: CompilerOptions{
		Lib:                              []string{"ES2016", "DOM"},
		Declaration:                      true,
		SourceMap:                        true,
		OutDir:                           "./dist",
		Strict:                           true,
		ModuleResolution:                 "node",
		ESModuleInterop:                  true,
		SkipLibCheck:                     true,
		ForceConsistentCasingInFileNames: true,
	}}
}
