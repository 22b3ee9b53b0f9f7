// Package persona holds the persona catalog, the active persona selection and
// the conversational prompt builder.
package persona
