package common

// AuthorizationHeaderName carries the bearer token on protected requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the expected authorization scheme prefix.
const BearerScheme = "Bearer"

// DefaultCategory is stored when an upload carries no category.
const DefaultCategory = "default"
