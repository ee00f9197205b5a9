// Package http implements the HTTP handlers of PlotPilot. Handlers are thin:
// they bind and validate requests, call the dataset service and translate
// service errors into RFC 7807 problem responses.
//
// # Routes
//
//	POST   /api/datasets                              upload (multipart field "file")
//	GET    /api/datasets/{id}                         dataset view
//	DELETE /api/datasets/{id}                         drop the dataset
//	POST   /api/datasets/{id}/clean                   run the cleaning pipeline
//	POST   /api/datasets/{id}/revert                  discard the cleaned table
//	PUT    /api/datasets/{id}/active                  choose the original or cleaned table
//	GET    /api/datasets/{id}/summary?preview=N       statistics of the active table
//	GET    /api/datasets/{id}/charts                  chart catalogue
//	GET    /api/datasets/{id}/charts/{kind}/options   eligible columns per role
//	PUT    /api/datasets/{id}/charts/selection        remember a chart
//	DELETE /api/datasets/{id}/charts/selection        forget it
//	POST   /api/datasets/{id}/charts                  figure and plotly-express code
//	GET    /api/datasets/{id}/export?format=csv|xlsx  download the active table
//	GET    /api/datasets/{id}/events                  websocket event stream
//
// # Error Mapping
//
// Service sentinels are matched with errors.Is:
//
//	services.ErrSessionNotFound   -> 404 DATASET_NOT_FOUND
//	services.ErrNoCleanedTable    -> 409 CONFLICT
//	services.ErrInvalidInput      -> 400 INVALID_DATA
//	services.ErrUnsupportedExport -> 415 UNSUPPORTED_FORMAT
//	services.ErrTooManySessions   -> 503 SERVICE_UNAVAILABLE
//
// Loader failures arrive as *errors.AppError and keep their own status.
package http
