package common

// TokenFieldName is the query parameter and JSON body field that carries the
// session token on every authenticated request.
const TokenFieldName = "_token"
