// Package artifacts handles everything that happens to a generated image
// after the generator exits: the best-effort copy to the user's requested
// destination, thumbnail rendering, date-keyed archiving, and deletion of
// files belonging to cleaned-up jobs.
package artifacts
