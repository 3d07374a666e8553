package auth

import "context"

// workerKey carries the verified claims of the worker making a request.
type workerKey struct{}

// ContextWithWorker attaches verified claims to ctx.
func ContextWithWorker(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, workerKey{}, claims)
}

// WorkerFrom returns the username of the authenticated worker. It is false for requests the
// middleware skipped or whose token carried no username.
func WorkerFrom(ctx context.Context) (string, bool) {
	claims, _ := ctx.Value(workerKey{}).(*Claims)
	if claims == nil || claims.Username == "" {
		return "", false
	}
	return claims.Username, true
}
