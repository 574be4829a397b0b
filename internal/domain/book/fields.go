package book

// Indexed field names shared by the store schema and search filters.
const (
	FieldTitle         = "title"
	FieldDescription   = "description"
	FieldAuthors       = "authors"
	FieldCategories    = "categories"
	FieldGenres        = "genres"
	FieldReadingLevel  = "reading_level"
	FieldRatingAvg     = "rating_avg"
	FieldRatingCount   = "rating_count"
	FieldPageCount     = "page_count"
	FieldPublishedYear = "published_year"
	FieldISBN          = "isbn"
	FieldImageURL      = "image_url"
	FieldPreviewURL    = "preview_url"
	FieldEmbedding     = "embedding"
)

// ListSeparator joins multi-valued fields (authors, categories, genres) in storage.
const ListSeparator = "|"
