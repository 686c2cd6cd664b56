package service

import "fmt"

type ErrResourceNotFound struct {
	error
}

func NewErrJobNotFound(id any) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("job %s not found", id)}
}

func NewErrClientNotFound(id any) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("client %s not found", id)}
}

func NewErrPortfolioNotFound(id any) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("portfolio %s not found", id)}
}

func NewErrAssetNotFound(id any) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("asset %s not found", id)}
}

func NewErrPathsNotFound(jobID any) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("no stored paths for job %s", jobID)}
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(format string, args ...any) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf(format, args...)}
}

type ErrConflict struct {
	error
}

func NewErrConflict(format string, args ...any) *ErrConflict {
	return &ErrConflict{fmt.Errorf(format, args...)}
}
