// Package main Onboard Bot operations API
//
//	@title			Onboard Bot API
//	@version		1.0
//	@description	Health, readiness and read-only debug views of the community onboarding bot.
//
//	@BasePath		/
//
//	@tag.name			System
//	@tag.description	Liveness and readiness
//
//	@tag.name			Debug
//	@tag.description	Read-only guild and invite state, enabled by server.enable_debug
package main
