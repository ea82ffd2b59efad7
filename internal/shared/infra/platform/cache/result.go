package cache

// Result es el valor etiquetado éxito/fallo que devuelve cada operación.
// En caso de fallo, Val() devuelve el valor neutro documentado de la operación
// (false, Value ausente, mapa vacío...), así que ignorar Err() siempre es seguro.
type Result[T any] struct {
	val T
	err error
}

func okResult[T any](v T) Result[T] {
	return Result[T]{val: v}
}

func failResult[T any](neutral T, err error) Result[T] {
	return Result[T]{val: neutral, err: err}
}

// Val devuelve el valor, o el neutro si la operación falló.
func (r Result[T]) Val() T { return r.val }

// Err devuelve el fallo (un *Error) o nil.
func (r Result[T]) Err() error { return r.err }

// Ok indica que la operación llegó al backend y terminó sin error.
func (r Result[T]) Ok() bool { return r.err == nil }

// Kind devuelve la clase del fallo, KindNone si no hubo.
func (r Result[T]) Kind() ErrorKind { return KindOf(r.err) }

// Result devuelve el par (valor, error) al estilo de go-redis.
func (r Result[T]) Result() (T, error) { return r.val, r.err }
