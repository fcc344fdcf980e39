// Package middleware contains HTTP middleware for the Fiber application.
//
//   - Auth: API key validation. Routes registered before it, such as
//     /health, stay public.
//   - RayID: a request id stored in the "ray_id" local and echoed in the
//     X-Ray-ID response header, picked up by logger.WithRayID.
package middleware
