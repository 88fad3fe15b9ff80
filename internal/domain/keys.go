package domain

// KeyPrefix namespaces every rowdex key inside a shared store.
const KeyPrefix = "rowdex:"
