// Package http implements the request handler that serves multiple domains
// from one shared object storage backend.
//
// Every request passes through the same decision sequence: the (hostname,
// path) pair is resolved against a static route table, the method is
// validated once against {GET, PUT, DELETE}, the operation is authorized
// (shared-secret header for PUT and DELETE, exact-path allow list for GET),
// and only then does a storage operation run against the resolved key.
//
// # Response Surface
//
//	GET/PUT/DELETE  unmapped hostname or path   404 "Not Found"
//	other method    mapped route                405 + Allow header
//	PUT/DELETE      auth header mismatch        403 "Forbidden"
//	GET             path not allow-listed       403 "Forbidden"
//	PUT             authorized                  201 "Put {key} successfully!"
//	GET             authorized, object absent   404 "Object Not Found"
//	GET             authorized, object present  200 + bytes, metadata, ETag
//	DELETE          authorized                  204, empty body
//
// The route-level 404 fires before authorization, so unmapped paths never
// reveal whether credentials would have been required. The two 404 wordings
// are deliberately distinct for observability.
//
// # Usage
//
//	handlerCfg := http.HandlerConfig{
//	    Routes: routes,
//	    Reads:  allowList,
//	    Auth:   http.AuthConfig{Secret: secret},
//	}
//	handler := http.NewHandler(&handlerCfg, service)
//	http.ListenAndServe(":8080", handler.Router())
//
// The service parameter must implement the Service interface with Get, Put,
// and Delete methods.
package http
