// Package connectors implements provider adapters behind the
// integration.Connector port: a shared OAuth2 token client, a REST
// connector for JSON providers, and a Stripe connector built on the
// official SDK. Remote failures are translated into the error taxonomy
// in the integration domain package.
package connectors
