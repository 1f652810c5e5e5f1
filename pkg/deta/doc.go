// Package deta is the project-level entry point of the SDK. It validates the
// project key once, applies environment defaults and hands out base.Base
// clients bound to either the remote API or an in-memory store.
//
// Runtime mode selection follows DETA_RUNTIME_MODE:
//
//	auto (default)  http when DETA_PROJECT_KEY is set, mock otherwise
//	http            requires DETA_PROJECT_KEY; DETA_BASE_HOST overrides the host
//	mock            in-memory store, optionally seeded from DETA_MOCK_SEED
package deta
