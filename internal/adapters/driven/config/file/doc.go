// Package file keeps qagent's user-editable state under ~/.qagent.
//
// ConfigStore persists settings as TOML and writes atomically. PromptStore
// seeds editable prompt templates on first use and falls back to the
// built-in templates when a user file is missing or incomplete.
package file
