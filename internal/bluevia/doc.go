// Package bluevia validates Bluevia in-app payment requests and issues
// and checks the HS256 pay JWTs exchanged with Bluevia.
//
// The shared secret comes from configuration and is handed to NewService;
// nothing in the package holds it globally.
package bluevia
