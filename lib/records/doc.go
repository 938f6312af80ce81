// Package records defines the persisted shape of the harvested CRM data:
// the Record type shared by all entity categories, the EntityType enum and
// the StorageDocument that holds all collections plus the sync metadata.
//
// The storage layer treats the entity-specific fields of a record (name,
// email, deal stage, due date, ...) as opaque. Only two fields carry meaning
// for storage coordination:
//
//   - ID: the stable identity computed by the harvester from page content.
//     It is unique within one collection, not across collections.
//   - ExtractedAt: the harvest timestamp in milliseconds, used as the
//     recency tiebreaker when two extractions of the same record collide.
//
// On the wire and on disk a record is a flat JSON object: the opaque fields
// live at the top level next to "id" and "extractedAt", exactly as the
// harvester produced them. The custom JSON codec on Record performs the
// flattening in both directions.
//
// A document that has never been written decodes as DefaultDocument(). A
// missing document is therefore never an error, only an empty state.
package records
