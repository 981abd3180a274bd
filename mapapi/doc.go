// Package mapapi fetches the map provider's JavaScript SDK for the console.
//
// [Injector] is the map provider's [loader.Injector]: every attempt requests
// the SDK with its own callback token and treats the script as ready only if
// the provider wired that token into the returned source. Wrap it with
// [NewLoader] to get the console's singleton map loader.
package mapapi
