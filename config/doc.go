// Package config provides configuration loading and validation for the page
// handler.
//
// The package handles YAML configuration files, environment variables, and
// CLI flags with automatic merging and validation using
// go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (PAGEHOST_ prefix)
//  4. CLI flags
//
// # Route Table as Data
//
// The route table and read allow list are configuration data, never code:
//
//	sites:
//	  - hostname: example2.com
//	    routes:
//	      - path: /security.txt
//	        key: example2/security.txt
//	allow_list:
//	  - /security/policy
//
// Config.RouteTable and Config.ReadAllowList convert these into the
// immutable lookup structures the handler is constructed with, rejecting
// duplicates and invalid paths at startup rather than at request time.
//
// # Environment Variables
//
// All config keys map to environment variables with PAGEHOST_ prefix:
//   - server.port → PAGEHOST_SERVER_PORT
//   - database.type → PAGEHOST_DATABASE_TYPE
//   - auth.secret → PAGEHOST_AUTH_SECRET
//
// The auth secret is expected to arrive through the environment or a
// mounted secret file rather than the checked-in config.
package config
