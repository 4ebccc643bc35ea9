package views

// EntityBodyID is the DOM id of the part of a detail page that live updates
// replace.
const EntityBodyID = "entity-body"
