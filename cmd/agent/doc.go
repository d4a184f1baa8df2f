// Command agent runs the local bridge: a persistent process that executes
// outbound requests on behalf of a remote API-testing client, with proxy
// routing, custom TLS trust and browser-accurate cookie jars.
package main
