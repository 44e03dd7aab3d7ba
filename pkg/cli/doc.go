// Package cli implements novo-probe, a small command-line tool that sends
// the gateway's GraphQL documents through the same transport pipeline the
// gateway uses. It is meant for checking a backend by hand.
//
// # Commands
//
// status: the backend's session status and maintenance flag
//
//	novo-probe status -endpoint https://api.novo.example/graphql
//
// me: the user a bearer token belongs to
//
//	NOVO_TOKEN=... novo-probe me -json
//
// login: sign in and show the normalized session (tokens hidden unless
// -show-token is given)
//
//	NOVO_PASSWORD=... novo-probe login -email ada@novo.example
//
// documents: list the document catalog, or print one document
//
//	novo-probe documents -show AuthLogin
//
// Pipeline events are logged through logrus; pass -v to the binary to see
// them.
package cli
