// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The generation pipeline is:
//
//	SessionManager      documents and page markup per session
//	KnowledgeStore      chunk, embed and index; nearest-neighbour retrieval
//	PromptBuilder       source-attributed prompts from retrieved context
//	Gateway             bounded LLM call with deterministic fallback
//	Repairer            coerce model output into exactly N test cases
//	TestCaseGenerator   retrieval + prompt + gateway + repair
//	ScriptSynthesizer   page structure + retrieval + gateway + CleanCode
//
// Services are pure Go with no CGO or external dependencies.
package services
