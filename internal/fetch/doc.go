// Package fetch retrieves pages and assets over HTTP(S).
//
// The Client follows at most one redirect: on 301, 302 or 307 it issues a
// single further GET to the Location header and returns that response's
// body. Anything else that is not 2xx is a failure. The net/http client's
// own redirect handling is disabled so this limit holds exactly.
//
// Requests can be routed through a SOCKS5 proxy, carry per-site headers and
// cookies, and be paced with a minimum delay between them.
package fetch
