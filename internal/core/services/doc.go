// Package services implements the driving port interfaces.
//
// IndexService owns the vector index lifecycle, Retriever turns a query
// into ranked context and PipelineService runs the fixed retrieve, analyze
// and synthesize stages. SettingsService resolves configuration into
// domain.Settings once at startup.
package services
