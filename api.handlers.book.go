package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// statusFromError maps a service error to the http status code sent to the client.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBookIDRequired), errors.Is(err, ErrInvalidBookID), IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// failed logs err and sends its status code with an empty body.
func (api *APIHandler) failed(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	logger := api.GetLoggerFromContext(r.Context())
	status := statusFromError(err)
	fields = append(fields, zap.Int("response.status", status), zap.Error(err))
	if status == http.StatusInternalServerError {
		logger.Error(msg, fields...)
	} else {
		logger.Warn(msg, fields...)
	}
	if werr := WriteEmpty(r.Context(), w, status); werr != nil {
		logger.Error("failed to send error response", zap.Error(werr))
	}
}

// GetAllBooks godoc
//
//	@Summary	List all books
//	@Tags		book
//	@Produce	json
//	@Success	200	{array}	Book
//	@Failure	500
//	@Router		/book [get]
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	books, err := api.bookService.ListBooks(r.Context())
	if err != nil {
		api.failed(w, r, "failed to get all books", err)
		return
	}
	logger.Info("success to get all books", zap.Int("books.total", len(books)))
	if err = WriteJSON(r.Context(), w, http.StatusOK, books); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// GetOneBook godoc
//
//	@Summary	Get a book by its id
//	@Tags		book
//	@Produce	json
//	@Param		id	path		int	true	"book id"
//	@Success	200	{object}	Book
//	@Failure	400
//	@Failure	404
//	@Router		/book/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		api.failed(w, r, "book id provided is not valid", err, zap.String("book.id", ps.ByName("id")))
		return
	}
	book, err := api.bookService.GetBook(r.Context(), id)
	if err != nil {
		api.failed(w, r, "failed to get book", err, zap.Int64("book.id", id))
		return
	}
	logger.Info("success to get book", zap.Int64("book.id", id))
	if err = WriteJSON(r.Context(), w, http.StatusOK, book); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// CreateBook godoc
//
//	@Summary	Create a book
//	@Tags		book
//	@Accept		json
//	@Produce	json
//	@Param		book	body		Book	true	"book to create, bookId is ignored"
//	@Success	200		{object}	Book
//	@Failure	400
//	@Router		/book [post]
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	var input Book
	if err := DecodeBookRequestBody(r, &input); err != nil {
		logger.Warn("failed to decode create book request", zap.Error(err))
		if werr := WriteEmpty(r.Context(), w, http.StatusBadRequest); werr != nil {
			logger.Error("failed to send error response", zap.Error(werr))
		}
		return
	}

	book, err := api.bookService.CreateBook(r.Context(), input)
	if err != nil {
		api.failed(w, r, "failed to create book", err)
		return
	}
	logger.Info("success to create book", zap.Int64("book.id", book.BookID()))
	if err = WriteJSON(r.Context(), w, http.StatusOK, book); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// UpdateBook godoc
//
//	@Summary	Update name, summary and rating of a book
//	@Tags		book
//	@Accept		json
//	@Produce	json
//	@Param		book	body		Book	true	"book with its bookId"
//	@Success	200		{object}	Book
//	@Failure	400
//	@Failure	404
//	@Router		/book [put]
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	var input Book
	if err := DecodeBookRequestBody(r, &input); err != nil {
		logger.Warn("failed to decode update book request", zap.Error(err))
		if werr := WriteEmpty(r.Context(), w, http.StatusBadRequest); werr != nil {
			logger.Error("failed to send error response", zap.Error(werr))
		}
		return
	}

	book, err := api.bookService.UpdateBook(r.Context(), input)
	if err != nil {
		api.failed(w, r, "failed to update book", err, zap.Int64("book.id", input.BookID()))
		return
	}
	logger.Info("success to update book", zap.Int64("book.id", book.BookID()))
	if err = WriteJSON(r.Context(), w, http.StatusOK, book); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}

// DeleteOneBook godoc
//
//	@Summary	Delete a book by its id
//	@Tags		book
//	@Param		id	path	int	true	"book id"
//	@Success	200
//	@Failure	400
//	@Failure	404
//	@Router		/book/{id} [delete]
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		api.failed(w, r, "book id provided is not valid", err, zap.String("book.id", ps.ByName("id")))
		return
	}
	if err = api.bookService.DeleteBook(r.Context(), id); err != nil {
		api.failed(w, r, "failed to delete book", err, zap.Int64("book.id", id))
		return
	}
	logger.Info("success to delete book", zap.Int64("book.id", id))
	if err = WriteEmpty(r.Context(), w, http.StatusOK); err != nil {
		logger.Error("failed to send response", zap.Error(err))
	}
}
