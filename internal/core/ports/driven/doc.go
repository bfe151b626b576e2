// Package driven holds the interfaces core services call out through.
//
// Every generation needs an EmbeddingService, a ChunkIndex, a
// PostProcessorPipeline, a NormaliserRegistry, a PromptStore and a
// StructureExtractor. Settings need a ConfigStore.
//
// LLMService, PageFetcher and AIConfigValidator may be nil. Without an
// LLM every request gets fallback output; without a fetcher markup must
// be uploaded rather than rendered from a URL.
package driven
